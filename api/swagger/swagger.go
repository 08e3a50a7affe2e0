package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Veridex Custody API",
        "description": "Digital chain of custody management with encrypted case files and evidence",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Authentication", "description": "Login, token refresh, session management"},
        {"name": "Cases", "description": "Case lifecycle, assignment and closure"},
        {"name": "Evidence", "description": "Encrypted evidence upload, download and verification"},
        {"name": "Custody", "description": "Case storages, custodians and transfers"},
        {"name": "Audit", "description": "Audit trails and export jobs"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate user",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "Tokens issued", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Refresh access token",
                "responses": {
                    "200": {"description": "Tokens rotated"},
                    "401": {"description": "Refresh token invalid or expired"}
                }
            }
        },
        "/auth/logout": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Revoke refresh token",
                "responses": {
                    "204": {"description": "Session revoked"}
                }
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Authentication"],
                "summary": "Current user info",
                "responses": {
                    "200": {"description": "User info", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/cases": {
            "get": {
                "tags": ["Cases"],
                "summary": "List cases visible to the caller",
                "parameters": [
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "priority", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "pageSize", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "Paginated cases", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Cases"],
                "summary": "Create case",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateCaseRequest"}}
                ],
                "responses": {
                    "201": {"description": "Case created with encrypted fields"}
                }
            }
        },
        "/cases/{id}": {
            "get": {
                "tags": ["Cases"],
                "summary": "Get case by UUID or human identifier",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Decrypted case detail"},
                    "403": {"description": "Caller has no relationship to the case"},
                    "404": {"description": "Not found"}
                }
            },
            "put": {
                "tags": ["Cases"],
                "summary": "Update case fields",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Updated case"},
                    "409": {"description": "Case is read only in its current state"}
                }
            }
        },
        "/cases/{id}/assignments": {
            "post": {
                "tags": ["Cases"],
                "summary": "Propose investigators for admin review",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "201": {"description": "Assignment request queued"}
                }
            }
        },
        "/assignments/{id}": {
            "put": {
                "tags": ["Cases"],
                "summary": "Approve or reject a pending assignment request",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/DecisionRequest"}}
                ],
                "responses": {
                    "204": {"description": "Decision recorded"}
                }
            }
        },
        "/cases/{id}/closure": {
            "post": {
                "tags": ["Cases"],
                "summary": "Request case closure",
                "responses": {
                    "204": {"description": "Closure requested, case moves to Under Review"}
                }
            },
            "put": {
                "tags": ["Cases"],
                "summary": "Approve or reject a pending closure",
                "responses": {
                    "204": {"description": "Decision recorded; case closes when both creator and admin approved"}
                }
            }
        },
        "/cases/{id}/evidence": {
            "get": {
                "tags": ["Evidence"],
                "summary": "List evidence for a case",
                "responses": {
                    "200": {"description": "Evidence metadata list"}
                }
            },
            "post": {
                "tags": ["Evidence"],
                "summary": "Upload evidence file",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "file", "in": "formData", "required": true, "type": "file"},
                    {"name": "description", "in": "formData", "required": true, "type": "string"},
                    {"name": "mediaType", "in": "formData", "type": "string"}
                ],
                "responses": {
                    "201": {"description": "Evidence sealed and stored"},
                    "409": {"description": "Storage locked or case in terminal state"},
                    "413": {"description": "File exceeds the configured size limit"}
                }
            }
        },
        "/evidence/{id}/download": {
            "get": {
                "tags": ["Evidence"],
                "summary": "Download decrypted evidence content",
                "produces": ["application/octet-stream"],
                "responses": {
                    "200": {"description": "Decrypted bytes with fingerprint header"}
                }
            }
        },
        "/evidence/{id}/verify": {
            "post": {
                "tags": ["Evidence"],
                "summary": "Verify evidence integrity",
                "responses": {
                    "200": {"description": "Fingerprint comparison result"}
                }
            }
        },
        "/evidence/{id}/transfers": {
            "post": {
                "tags": ["Custody"],
                "summary": "Request custody transfer",
                "responses": {
                    "201": {"description": "Transfer pending custodian review"},
                    "409": {"description": "A pending transfer already exists"}
                }
            }
        },
        "/evidence/{id}/chain": {
            "get": {
                "tags": ["Custody"],
                "summary": "Chain of custody for an evidence item",
                "responses": {
                    "200": {"description": "Chronological custody handovers"}
                }
            }
        },
        "/transfers/{id}": {
            "put": {
                "tags": ["Custody"],
                "summary": "Approve or reject a pending transfer",
                "responses": {
                    "204": {"description": "Decision recorded"}
                }
            }
        },
        "/transfers/pending": {
            "get": {
                "tags": ["Custody"],
                "summary": "List pending custody transfers",
                "responses": {
                    "200": {"description": "Pending transfers"}
                }
            }
        },
        "/storages/{id}": {
            "get": {
                "tags": ["Custody"],
                "summary": "Storage detail with custodian and locations",
                "responses": {
                    "200": {"description": "Storage detail"}
                }
            }
        },
        "/storages/{id}/lock": {
            "put": {
                "tags": ["Custody"],
                "summary": "Lock or unlock a case storage",
                "responses": {
                    "204": {"description": "Lock state changed"},
                    "409": {"description": "Storage already in the requested state"}
                }
            }
        },
        "/storages/{id}/custodian": {
            "put": {
                "tags": ["Custody"],
                "summary": "Reassign the active custodian",
                "responses": {
                    "200": {"description": "New active assignment"}
                }
            }
        },
        "/custody/dashboard": {
            "get": {
                "tags": ["Custody"],
                "summary": "Custody dashboard counters",
                "responses": {
                    "200": {"description": "Aggregated counters"}
                }
            }
        },
        "/cases/{id}/audit": {
            "get": {
                "tags": ["Audit"],
                "summary": "Case audit trail",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "action", "in": "query", "type": "string"},
                    {"name": "from", "in": "query", "type": "string"},
                    {"name": "to", "in": "query", "type": "string"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "Append only audit entries"}
                }
            }
        },
        "/cases/{id}/audit/export": {
            "get": {
                "tags": ["Audit"],
                "summary": "Download case audit trail as CSV",
                "produces": ["text/csv"],
                "responses": {
                    "200": {"description": "CSV file"}
                }
            }
        },
        "/evidence/{id}/audit": {
            "get": {
                "tags": ["Audit"],
                "summary": "Evidence audit trail",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "action", "in": "query", "type": "string"},
                    {"name": "from", "in": "query", "type": "string"},
                    {"name": "to", "in": "query", "type": "string"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "Append only audit entries"}
                }
            }
        },
        "/evidence/{id}/audit/export": {
            "get": {
                "tags": ["Audit"],
                "summary": "Download evidence audit trail as CSV",
                "produces": ["text/csv"],
                "responses": {
                    "200": {"description": "CSV file"}
                }
            }
        },
        "/audit/exports": {
            "post": {
                "tags": ["Audit"],
                "summary": "Enqueue an asynchronous audit export",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateExportRequest"}}
                ],
                "responses": {
                    "202": {"description": "Job queued"}
                }
            }
        },
        "/audit/exports/{id}": {
            "get": {
                "tags": ["Audit"],
                "summary": "Export job status",
                "responses": {
                    "200": {"description": "Job status with download URL when finished"}
                }
            }
        },
        "/audit/exports/download/{token}": {
            "get": {
                "tags": ["Audit"],
                "summary": "Download a finished export by signed token",
                "responses": {
                    "200": {"description": "Export file"},
                    "410": {"description": "Token expired"}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "CreateCaseRequest": {
            "type": "object",
            "required": ["title", "description", "category"],
            "properties": {
                "title": {"type": "string"},
                "description": {"type": "string"},
                "category": {"type": "string"},
                "priority": {"type": "string", "enum": ["low", "medium", "high", "critical"]}
            }
        },
        "DecisionRequest": {
            "type": "object",
            "required": ["decision"],
            "properties": {
                "decision": {"type": "string", "enum": ["approve", "reject"]}
            }
        },
        "CreateExportRequest": {
            "type": "object",
            "required": ["type", "format"],
            "properties": {
                "type": {"type": "string", "enum": ["case_audit", "evidence_audit", "chain_of_custody"]},
                "format": {"type": "string", "enum": ["csv", "pdf"]},
                "case_id": {"type": "string"},
                "evidence_id": {"type": "string"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
