package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "GeoPhoto API",
        "description": "Geotagged photo capture backend: device tokens, photo records, gallery and map views",
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
        {"name": "Devices", "description": "Device registration and tokens"},
        {"name": "Photos", "description": "Geotagged photo records of the calling device"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Liveness check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check pinging the store and cache",
                "responses": {
                    "200": {"description": "Ready"},
                    "503": {"description": "A dependency is down"}
                }
            }
        },
        "/metrics": {
            "get": {
                "summary": "Prometheus metrics",
                "produces": ["text/plain"],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/images/{name}": {
            "get": {
                "tags": ["Photos"],
                "summary": "Download a photo kept by the local object store",
                "produces": ["image/jpeg", "image/png"],
                "parameters": [
                    {"name": "name", "in": "path", "required": true, "type": "string"},
                    {"name": "token", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Image bytes", "schema": {"type": "file"}},
                    "403": {"description": "Invalid token", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/devices/token": {
            "post": {
                "tags": ["Devices"],
                "summary": "Issue a device token",
                "consumes": ["application/json"],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/DeviceTokenRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/photos": {
            "get": {
                "tags": ["Photos"],
                "summary": "List photos newest first",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "platform", "in": "query", "type": "string", "enum": ["android", "ios"]}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "502": {"description": "Query failed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Photos"],
                "summary": "Submit a geotagged photo",
                "security": [{"BearerAuth": []}],
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "origin", "in": "formData", "required": true, "type": "string", "enum": ["camera", "gallery"]},
                    {"name": "latitude", "in": "formData", "type": "number"},
                    {"name": "longitude", "in": "formData", "type": "number"},
                    {"name": "fileUri", "in": "formData", "type": "string"},
                    {"name": "mimeType", "in": "formData", "type": "string"},
                    {"name": "file", "in": "formData", "type": "file"}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "413": {"description": "Too large", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Location not available", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "502": {"description": "Persistence failed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/photos/map": {
            "get": {
                "tags": ["Photos"],
                "summary": "Map pins for located photos",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "platform", "in": "query", "type": "string", "enum": ["android", "ios"]}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/photos/export": {
            "get": {
                "tags": ["Photos"],
                "summary": "Export photos as CSV or PDF",
                "security": [{"BearerAuth": []}],
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "Attachment", "schema": {"type": "file"}},
                    "400": {"description": "Unsupported format", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "DeviceTokenRequest": {
            "type": "object",
            "required": ["deviceId"],
            "properties": {
                "deviceId": {"type": "string", "minLength": 4, "maxLength": 128},
                "platform": {"type": "string", "enum": ["android", "ios"]}
            }
        },
        "GeoPoint": {
            "type": "object",
            "properties": {
                "latitude": {"type": "number"},
                "longitude": {"type": "number"}
            }
        },
        "PhotoRecord": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "fileName": {"type": "string"},
                "fileUri": {"type": "string"},
                "location": {"$ref": "#/definitions/GeoPoint"},
                "deviceId": {"type": "string"},
                "createdAt": {"type": "string", "format": "date-time"}
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
