package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "ComplyVault Evidence API",
        "description": "Evidence ingestion kernel: drafts, sealing, state transitions and audit trail",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Drafts", "description": "Evidence draft lifecycle"},
        {"name": "Attachments", "description": "Draft attachment uploads and downloads"},
        {"name": "Evidence", "description": "Sealed evidence records and ledger transitions"},
        {"name": "Audit", "description": "Append-only audit trail"}
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"}
                }
            }
        },
        "/drafts": {
            "post": {
                "tags": ["Drafts"],
                "summary": "Create an evidence draft",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateDraftRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "No active ingestion profile"},
                    "422": {"description": "Validation failed"}
                }
            }
        },
        "/drafts/{id}": {
            "get": {
                "tags": ["Drafts"],
                "summary": "Get a draft",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            },
            "patch": {
                "tags": ["Drafts"],
                "summary": "Patch mutable draft fields",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateDraftRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Binding fields immutable or draft sealed"},
                    "422": {"description": "Validation failed"}
                }
            }
        },
        "/drafts/{id}/for-seal": {
            "post": {
                "tags": ["Drafts"],
                "summary": "Preview seal readiness",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/drafts/{id}/seal": {
            "post": {
                "tags": ["Drafts"],
                "summary": "Seal a draft into immutable evidence",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "201": {"description": "Sealed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already sealed or idempotency conflict"},
                    "422": {"description": "Seal preconditions not met"}
                }
            }
        },
        "/drafts/{id}/evidence": {
            "get": {
                "tags": ["Evidence"],
                "summary": "Get the sealed evidence produced from a draft",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/drafts/{id}/attachments": {
            "get": {
                "tags": ["Attachments"],
                "summary": "List draft attachments",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Attachments"],
                "summary": "Upload an attachment onto a draft",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "file", "in": "formData", "required": true, "type": "file"}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Validation failed"}
                }
            }
        },
        "/attachments/{id}/download-url": {
            "post": {
                "tags": ["Attachments"],
                "summary": "Issue a signed download link",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/attachments/download": {
            "get": {
                "tags": ["Attachments"],
                "summary": "Download an attachment via a signed token",
                "parameters": [
                    {"name": "token", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Attachment bytes"},
                    "401": {"description": "Invalid or expired token"}
                }
            }
        },
        "/evidence/{id}": {
            "get": {
                "tags": ["Evidence"],
                "summary": "Get sealed evidence",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/evidence/{id}/receipt": {
            "get": {
                "tags": ["Evidence"],
                "summary": "Download the PDF seal receipt",
                "produces": ["application/pdf"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Receipt PDF"},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/evidence/{id}/transition": {
            "post": {
                "tags": ["Evidence"],
                "summary": "Advance the evidence ledger state",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/TransitionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Transition blocked"}
                }
            }
        },
        "/audit-events": {
            "get": {
                "tags": ["Audit"],
                "summary": "List audit events for a subject",
                "parameters": [
                    {"name": "subjectId", "in": "query", "required": true, "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "pageSize", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "CreateDraftRequest": {
            "type": "object",
            "required": ["ingestion_method", "dataset_type", "declared_scope", "rationale"],
            "properties": {
                "ingestion_method": {"type": "string"},
                "source_system": {"type": "string"},
                "dataset_type": {"type": "string"},
                "declared_scope": {"type": "string"},
                "scope_target_id": {"type": "string"},
                "rationale": {"type": "string"},
                "purpose_tags": {"type": "array", "items": {"type": "string"}},
                "retention_policy": {"type": "string"},
                "contains_personal_data": {"type": "boolean"},
                "legal_basis": {"type": "string"},
                "quarantine_reason": {"type": "string"},
                "resolution_due_date": {"type": "string", "format": "date-time"},
                "payload": {"type": "object"},
                "external_reference_id": {"type": "string"},
                "snapshot_timestamp": {"type": "string", "format": "date-time"}
            }
        },
        "UpdateDraftRequest": {
            "type": "object",
            "properties": {
                "source_system": {"type": "string"},
                "rationale": {"type": "string"},
                "purpose_tags": {"type": "array", "items": {"type": "string"}},
                "retention_policy": {"type": "string"},
                "contains_personal_data": {"type": "boolean"},
                "legal_basis": {"type": "string"},
                "quarantine_reason": {"type": "string"},
                "resolution_due_date": {"type": "string", "format": "date-time"},
                "payload": {"type": "object"},
                "external_reference_id": {"type": "string"},
                "snapshot_timestamp": {"type": "string", "format": "date-time"}
            }
        },
        "TransitionRequest": {
            "type": "object",
            "required": ["to_state", "reason"],
            "properties": {
                "to_state": {"type": "string"},
                "reason": {"type": "string"}
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
