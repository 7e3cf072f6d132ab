// Package apidocs holds the OpenAPI document generated by swag from the
// handler annotations. Regenerate with:
//
//	swag init -g cmd/trip-planner/main.go -o internal/apidocs --parseDependency
package apidocs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "license": {
            "name": "Apache 2.0",
            "url": "http://www.apache.org/licenses/LICENSE-2.0.html"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/flights/search": {
            "post": {
                "description": "Without sessionToken the query starts a new search. With sessionToken the session is polled.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Search"],
                "summary": "Create or poll a flight search",
                "parameters": [
                    {
                        "description": "Create or poll request",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/search.Request"}
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/search.Snapshot"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/search.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/search.ErrorResponse"}},
                    "405": {"description": "Method Not Allowed", "schema": {"$ref": "#/definitions/search.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/search.ErrorResponse"}},
                    "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/search.Snapshot"}}
                }
            }
        },
        "/admin/sessions": {
            "get": {
                "description": "Returns the in-memory search sessions, newest first. Filter with status.",
                "produces": ["application/json"],
                "tags": ["Sessions"],
                "summary": "List live search sessions",
                "parameters": [
                    {"type": "string", "description": "Filter by status: pending, complete, error", "name": "status", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/admin.sessionListResponse"}}
                }
            }
        },
        "/admin/sessions/{token}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Sessions"],
                "summary": "Get a live search session",
                "parameters": [
                    {"type": "string", "description": "Session token", "name": "token", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/admin.sessionSummary"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/admin.problemDetail"}}
                }
            }
        },
        "/admin/searches": {
            "get": {
                "description": "Returns paginated create and poll events from the search audit log.",
                "produces": ["application/json"],
                "tags": ["Searches"],
                "summary": "List search history",
                "parameters": [
                    {"type": "string", "description": "Filter by origin IATA code", "name": "origin", "in": "query"},
                    {"type": "string", "description": "Filter by destination IATA code", "name": "destination", "in": "query"},
                    {"type": "string", "description": "Filter by resulting session status", "name": "status", "in": "query"},
                    {"type": "string", "description": "Filter by operation: create, poll", "name": "operation", "in": "query"},
                    {"type": "string", "description": "Filter by session token", "name": "session_token", "in": "query"},
                    {"type": "boolean", "description": "Filter by success/failure", "name": "success", "in": "query"},
                    {"type": "string", "description": "Events after this time (RFC 3339)", "name": "start_time", "in": "query"},
                    {"type": "string", "description": "Events before this time (RFC 3339)", "name": "end_time", "in": "query"},
                    {"type": "integer", "description": "Page number, 1-based (default: 1)", "name": "page", "in": "query"},
                    {"type": "integer", "description": "Results per page (default: 50)", "name": "per_page", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/admin.searchEventResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/admin.problemDetail"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/admin.problemDetail"}}
                }
            }
        },
        "/admin/searches/stats": {
            "get": {
                "description": "Aggregates the search audit log, optionally within a time window.",
                "produces": ["application/json"],
                "tags": ["Searches"],
                "summary": "Get search statistics",
                "parameters": [
                    {"type": "string", "description": "Filter by origin IATA code", "name": "origin", "in": "query"},
                    {"type": "string", "description": "Filter by destination IATA code", "name": "destination", "in": "query"},
                    {"type": "string", "description": "Events after this time (RFC 3339)", "name": "start_time", "in": "query"},
                    {"type": "string", "description": "Events before this time (RFC 3339)", "name": "end_time", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/audit.Stats"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/admin.problemDetail"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/admin.problemDetail"}}
                }
            }
        }
    },
    "definitions": {
        "admin.problemDetail": {
            "type": "object",
            "properties": {"error": {"type": "string"}}
        },
        "admin.sessionSummary": {
            "type": "object",
            "properties": {
                "session_token": {"type": "string"},
                "status": {"type": "string"},
                "origin": {"type": "string"},
                "destination": {"type": "string"},
                "created_at": {"type": "string"},
                "last_polled_at": {"type": "string"},
                "polls": {"type": "integer"},
                "itineraries": {"type": "integer"},
                "error": {"type": "string"},
                "synthetic": {"type": "boolean"}
            }
        },
        "admin.sessionListResponse": {
            "type": "object",
            "properties": {
                "provider": {"type": "string"},
                "total": {"type": "integer"},
                "data": {"type": "array", "items": {"$ref": "#/definitions/admin.sessionSummary"}}
            }
        },
        "admin.searchEventResponse": {
            "type": "object",
            "properties": {
                "data": {"type": "array", "items": {"$ref": "#/definitions/audit.Event"}},
                "total": {"type": "integer"},
                "page": {"type": "integer"},
                "per_page": {"type": "integer"}
            }
        },
        "audit.Event": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "timestamp": {"type": "string"},
                "duration_ms": {"type": "integer"},
                "session_token": {"type": "string"},
                "operation": {"type": "string"},
                "provider": {"type": "string"},
                "origin": {"type": "string"},
                "destination": {"type": "string"},
                "status": {"type": "string"},
                "action": {"type": "string"},
                "itineraries": {"type": "integer"},
                "upstream_called": {"type": "boolean"},
                "success": {"type": "boolean"},
                "error_message": {"type": "string"},
                "source": {"type": "string"},
                "parameters": {"type": "object", "additionalProperties": true}
            }
        },
        "audit.Stats": {
            "type": "object",
            "properties": {
                "total": {"type": "integer"},
                "failures": {"type": "integer"},
                "sessions": {"type": "integer"},
                "upstream_calls": {"type": "integer"},
                "avg_duration_ms": {"type": "number"},
                "by_status": {"type": "object", "additionalProperties": {"type": "integer"}}
            }
        },
        "flight.Leg": {
            "type": "object",
            "properties": {
                "origin": {"type": "string"},
                "destination": {"type": "string"},
                "date": {"type": "string", "example": "2026-11-02"}
            }
        },
        "flight.Query": {
            "type": "object",
            "properties": {
                "legs": {"type": "array", "items": {"$ref": "#/definitions/flight.Leg"}},
                "adults": {"type": "integer"},
                "childrenAges": {"type": "array", "items": {"type": "integer"}},
                "cabin": {"type": "string", "enum": ["economy", "premium_economy", "business", "first"]}
            }
        },
        "flight.Price": {
            "type": "object",
            "properties": {
                "amount": {"type": "integer"},
                "currency": {"type": "string"}
            }
        },
        "flight.ItineraryLeg": {
            "type": "object",
            "properties": {
                "origin": {"type": "string"},
                "destination": {"type": "string"},
                "departure": {"type": "string"},
                "arrival": {"type": "string"},
                "durationMinutes": {"type": "integer"},
                "stopCount": {"type": "integer"},
                "carriers": {"type": "array", "items": {"type": "string"}}
            }
        },
        "flight.Itinerary": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "price": {"$ref": "#/definitions/flight.Price"},
                "legs": {"type": "array", "items": {"$ref": "#/definitions/flight.ItineraryLeg"}},
                "deeplink": {"type": "string"},
                "score": {"type": "number"}
            }
        },
        "search.Content": {
            "type": "object",
            "properties": {
                "itineraries": {"type": "array", "items": {"$ref": "#/definitions/flight.Itinerary"}}
            }
        },
        "search.Request": {
            "type": "object",
            "properties": {
                "sessionToken": {"type": "string"},
                "query": {"$ref": "#/definitions/flight.Query"}
            }
        },
        "search.Snapshot": {
            "type": "object",
            "properties": {
                "sessionToken": {"type": "string"},
                "status": {"type": "string", "enum": ["pending", "complete", "error"]},
                "action": {"type": "string", "enum": ["replace", "keep"]},
                "progress": {"type": "integer"},
                "content": {"$ref": "#/definitions/search.Content"},
                "origin": {"type": "string"},
                "destination": {"type": "string"},
                "error": {"type": "string"},
                "synthetic": {"type": "boolean"}
            }
        },
        "search.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "message": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "trip-planner API",
	Description:      "Progressive flight search sessions: create a search, then poll it until complete.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
