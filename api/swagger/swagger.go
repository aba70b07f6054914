package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Timetable API",
        "description": "Timetable generation engine for college departments",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Generation", "description": "Timetable generation runs"},
        {"name": "Exports", "description": "CSV, PDF and XLSX timetable exports"},
        {"name": "Roster", "description": "Stored roster cache"},
        {"name": "Metrics", "description": "Service health and counters"}
    ],
    "paths": {
        "/health": {
            "get": {
                "tags": ["Metrics"],
                "summary": "Liveness check",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/ready": {
            "get": {
                "tags": ["Metrics"],
                "summary": "Readiness check of Postgres and Redis",
                "responses": {
                    "200": {"description": "Ready"},
                    "503": {"description": "A dependency is down"}
                }
            }
        },
        "/metrics": {
            "get": {
                "tags": ["Metrics"],
                "summary": "Prometheus metrics",
                "produces": ["text/plain"],
                "responses": {"200": {"description": "Prometheus exposition"}}
            }
        },
        "/api/v1/metrics/summary": {
            "get": {
                "tags": ["Metrics"],
                "summary": "Aggregated service counters",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/api/v1/generations/algorithms": {
            "get": {
                "tags": ["Generation"],
                "summary": "List generation presets",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/api/v1/generations/readiness": {
            "post": {
                "tags": ["Generation"],
                "summary": "Check whether a roster can be scheduled",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/GenerateRequest"}}
                ],
                "responses": {
                    "200": {"description": "Readiness report", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid payload", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/generations": {
            "post": {
                "tags": ["Generation"],
                "summary": "Queue a timetable generation run",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/GenerateRequest"}}
                ],
                "responses": {
                    "202": {"description": "Run queued; Location points at the run", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid payload", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "412": {"description": "Roster cannot be scheduled", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "503": {"description": "Generation queue is full", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/generations/{id}": {
            "get": {
                "tags": ["Generation"],
                "summary": "Run status, progress and best schedule",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"in": "path", "name": "id", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown run", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/generations/{id}/stop": {
            "post": {
                "tags": ["Generation"],
                "summary": "Stop a queued or running generation",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"in": "path", "name": "id", "required": true, "type": "string"}
                ],
                "responses": {
                    "202": {"description": "Stop requested", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown run", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Run already finished", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/generations/{id}/export": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download the best schedule of a run",
                "security": [{"BearerAuth": []}],
                "produces": ["text/csv", "application/pdf", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"],
                "parameters": [
                    {"in": "path", "name": "id", "required": true, "type": "string"},
                    {"in": "query", "name": "format", "type": "string", "enum": ["csv", "pdf", "xlsx"], "default": "csv"},
                    {"in": "query", "name": "title", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Export file", "schema": {"type": "file"}},
                    "400": {"description": "Unsupported format"},
                    "412": {"description": "Run has no schedule yet"}
                }
            }
        },
        "/api/v1/generations/{id}/exports": {
            "post": {
                "tags": ["Exports"],
                "summary": "Store an export and return a signed download URL",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"in": "path", "name": "id", "required": true, "type": "string"},
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/ExportRequest"}}
                ],
                "responses": {
                    "201": {"description": "Stored", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "412": {"description": "Run has no schedule yet", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/exports/{token}": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download a stored export through its signed token",
                "produces": ["application/octet-stream"],
                "parameters": [
                    {"in": "path", "name": "token", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Export file", "schema": {"type": "file"}},
                    "403": {"description": "Invalid or expired token"},
                    "404": {"description": "Export removed"}
                }
            }
        },
        "/api/v1/roster/refresh": {
            "post": {
                "tags": ["Roster"],
                "summary": "Drop the cached stored roster",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"in": "query", "name": "departmentId", "type": "string"}
                ],
                "responses": {"204": {"description": "Cache cleared"}}
            }
        }
    },
    "definitions": {
        "TeacherPayload": {
            "type": "object",
            "required": ["id"],
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string"},
                "subject": {"type": "string"},
                "department": {"type": "string"},
                "courseType": {"type": "string", "enum": ["required", "general", "elective"]},
                "requiredLessons": {"type": "integer"},
                "lessonDuration": {"type": "integer"},
                "requiresLab": {"type": "boolean"},
                "courseNeedsLab": {"type": "boolean"},
                "availability": {"type": "object", "additionalProperties": {"type": "array", "items": {"type": "integer"}}}
            }
        },
        "RoomPayload": {
            "type": "object",
            "required": ["id"],
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string"},
                "type": {"type": "string"},
                "capacity": {"type": "integer"},
                "department": {"type": "string"}
            }
        },
        "GenerateRequest": {
            "type": "object",
            "properties": {
                "teachers": {"type": "array", "items": {"$ref": "#/definitions/TeacherPayload"}},
                "rooms": {"type": "array", "items": {"$ref": "#/definitions/RoomPayload"}},
                "useStoredRoster": {"type": "boolean"},
                "days": {"type": "array", "items": {"type": "string"}},
                "startHour": {"type": "integer"},
                "endHour": {"type": "integer"},
                "departmentId": {"type": "string"},
                "balanceLoad": {"type": "boolean"},
                "optimize": {"type": "boolean"},
                "minimizeGaps": {"type": "boolean"},
                "prioritizeLabs": {"type": "boolean"},
                "prioritizeRequiredCourses": {"type": "boolean"},
                "exclusivePriorityRooms": {"type": "boolean"},
                "penalizeConflicts": {"type": "boolean"},
                "resortQueue": {"type": "boolean"},
                "exemptFirstLessonFromGapFilter": {"type": "boolean"},
                "algorithm": {"type": "string", "enum": ["fast", "optimized", "thorough"]},
                "maxTimeSeconds": {"type": "integer"},
                "maxAttempts": {"type": "integer"},
                "seed": {"type": "integer"}
            }
        },
        "ExportRequest": {
            "type": "object",
            "required": ["format"],
            "properties": {
                "format": {"type": "string", "enum": ["csv", "pdf", "xlsx"]},
                "title": {"type": "string"}
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
