package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Timetable API",
        "description": "Academic scheduling service with conflict detection and resolution.",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Rooms", "description": "Room inventory"},
        {"name": "Teachers", "description": "Teacher roster and subject loads"},
        {"name": "Subjects", "description": "Subject catalog"},
        {"name": "Sections", "description": "Class sections and their schedules"},
        {"name": "Conflicts", "description": "Conflict detection and resolution"},
        {"name": "Timetable", "description": "Weekly timetable view"},
        {"name": "Exports", "description": "CSV and PDF downloads"},
        {"name": "Imports", "description": "CSV uploads"}
    ],
    "paths": {
        "/rooms": {
            "get": {
                "tags": ["Rooms"],
                "summary": "List rooms",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "post": {
                "tags": ["Rooms"],
                "summary": "Create room",
                "responses": {"201": {"description": "Created"}}
            }
        },
        "/rooms/{id}": {
            "get": {
                "tags": ["Rooms"],
                "summary": "Get room with its derived weekly schedule",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}}
            },
            "put": {
                "tags": ["Rooms"],
                "summary": "Update room",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}}
            },
            "delete": {
                "tags": ["Rooms"],
                "summary": "Delete room; rejected while sections reference it unless cascade=true",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "cascade", "in": "query", "type": "boolean"}
                ],
                "responses": {"204": {"description": "Deleted"}, "409": {"description": "Still referenced"}}
            }
        },
        "/teachers": {
            "get": {
                "tags": ["Teachers"],
                "summary": "List teachers",
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["Teachers"],
                "summary": "Create teacher",
                "responses": {"201": {"description": "Created"}}
            }
        },
        "/teachers/{id}/subjects/{subjectId}": {
            "post": {
                "tags": ["Teachers"],
                "summary": "Assign subject; fails past the teacher unit cap",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "subjectId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {"200": {"description": "OK"}, "409": {"description": "Capacity exceeded or already assigned"}}
            },
            "delete": {
                "tags": ["Teachers"],
                "summary": "Unassign subject",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "subjectId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/subjects": {
            "get": {
                "tags": ["Subjects"],
                "summary": "List subjects",
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["Subjects"],
                "summary": "Create subject",
                "responses": {"201": {"description": "Created"}}
            }
        },
        "/sections": {
            "get": {
                "tags": ["Sections"],
                "summary": "List sections",
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["Sections"],
                "summary": "Create section with schedule validation",
                "responses": {"201": {"description": "Created"}, "409": {"description": "Capacity exceeded"}}
            }
        },
        "/sections/{id}": {
            "put": {
                "tags": ["Sections"],
                "summary": "Update section; version must echo the last read",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}, "412": {"description": "Stale version"}}
            }
        },
        "/sections/{id}/conflicts": {
            "get": {
                "tags": ["Sections"],
                "summary": "Check one section against the timetable without persisting",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/conflicts/detect": {
            "post": {
                "tags": ["Conflicts"],
                "summary": "Run detection over the full timetable and persist reports",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/conflicts": {
            "get": {
                "tags": ["Conflicts"],
                "summary": "List stored conflict reports",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/conflicts/{id}/resolve": {
            "post": {
                "tags": ["Conflicts"],
                "summary": "Apply a suggestion, manual reassignment, or override",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}, "412": {"description": "Report is stale"}}
            }
        },
        "/timetable": {
            "get": {
                "tags": ["Timetable"],
                "summary": "Weekly view of active section meetings",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/exports/timetable.pdf": {
            "get": {
                "tags": ["Exports"],
                "summary": "Weekly timetable as PDF",
                "produces": ["application/pdf"],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/imports/sections": {
            "post": {
                "tags": ["Imports"],
                "summary": "Bulk create sections from CSV; malformed rows are rejected per line",
                "consumes": ["multipart/form-data"],
                "responses": {"200": {"description": "Import summary"}}
            }
        }
    },
    "definitions": {
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
