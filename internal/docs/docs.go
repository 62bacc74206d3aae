// Package docs registers the OpenAPI document served at /swagger
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/api/analyze": {
            "post": {
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["analysis"],
                "summary": "Score an uploaded video file",
                "parameters": [
                    {"type": "file", "description": "Video file", "name": "video", "in": "formData", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/SuccessResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "413": {"description": "Payload Too Large", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "429": {"description": "Too Many Requests", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/api/analyze-url": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["analysis"],
                "summary": "Score a video by its published metadata",
                "parameters": [
                    {"description": "Video URL", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AnalyzeURLRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/SuccessResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "504": {"description": "Gateway Timeout", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["system"],
                "summary": "Service health",
                "responses": {"200": {"description": "OK"}}
            }
        }
    },
    "definitions": {
        "AnalyzeURLRequest": {
            "type": "object",
            "properties": {"url": {"type": "string"}}
        },
        "AnalysisData": {
            "type": "object",
            "properties": {
                "filename": {"type": "string"},
                "size_mb": {"type": "number"},
                "confidence": {"type": "number"},
                "is_ai": {"type": "boolean"},
                "factors": {"type": "array", "items": {"type": "string"}}
            }
        },
        "SuccessResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string"},
                "data": {"$ref": "#/definitions/AnalysisData"}
            }
        },
        "ErrorResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string"},
                "message": {"type": "string"},
                "category": {"type": "string"},
                "details": {"type": "object", "additionalProperties": {"type": "string"}}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "AI Video Detector API",
	Description:      "Heuristic scoring of uploaded videos and video URLs.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
