// Package docs registers the swagger document served at /swagger.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Log in",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"in": "body", "name": "login", "required": true, "schema": {"$ref": "#/definitions/models.LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": true}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/errorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/errorResponse"}}
                }
            }
        },
        "/refresh": {
            "post": {
                "tags": ["Auth"],
                "summary": "Rotate refresh token",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.refreshRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/services.Tokens"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/errorResponse"}}
                }
            }
        },
        "/register": {
            "post": {
                "tags": ["Auth"],
                "summary": "Register",
                "description": "Creates a tenant or landlord account",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"in": "body", "name": "user", "required": true, "schema": {"$ref": "#/definitions/models.RegisterRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/models.User"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/errorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/errorResponse"}}
                }
            }
        },
        "/users/me": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["Users"],
                "summary": "Current user",
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.User"}}
                }
            }
        },
        "/users/me/push-token": {
            "put": {
                "security": [{"BearerAuth": []}],
                "tags": ["Users"],
                "summary": "Set device push token",
                "description": "An empty token clears it",
                "consumes": ["application/json"],
                "parameters": [
                    {"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/models.PushTokenRequest"}}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/users/online": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["Users"],
                "summary": "Online users",
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"type": "string"}}}
                }
            }
        },
        "/admin/presence": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["Admin"],
                "summary": "Presence detail (admin)",
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": true}}
                }
            }
        },
        "/chats": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["Chats"],
                "summary": "List my chats",
                "description": "Newest activity first, with participants and the last message",
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/models.ChatSummary"}}}
                }
            }
        },
        "/chats/initiate": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["Chats"],
                "summary": "Start or reopen a direct chat",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/models.InitiateChatRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.Chat"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/errorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/errorResponse"}}
                }
            }
        },
        "/chats/{id}/messages": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["Chats"],
                "summary": "Chat history",
                "description": "Oldest first. Without limit the whole history is returned.",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "description": "Chat ID", "name": "id", "in": "path", "required": true},
                    {"type": "integer", "description": "Page size", "name": "limit", "in": "query"},
                    {"type": "integer", "description": "Offset", "name": "offset", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/models.ChatMessage"}}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/errorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/errorResponse"}}
                }
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["Chats"],
                "summary": "Send a message",
                "description": "Same relay as the websocket sendMessage event",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "description": "Chat ID", "name": "id", "in": "path", "required": true},
                    {"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/models.SendMessageRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/models.ChatMessage"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/errorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/errorResponse"}}
                }
            }
        },
        "/ws": {
            "get": {
                "tags": ["Realtime"],
                "summary": "Chat websocket",
                "description": "Upgrades to a websocket speaking {\"event\",\"data\"} JSON frames. The access token goes in the Authorization header or the token query parameter.",
                "parameters": [
                    {"type": "string", "description": "Access token", "name": "token", "in": "query"}
                ],
                "responses": {
                    "101": {"description": "Switching Protocols"},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/errorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "errorResponse": {
            "type": "object",
            "properties": {"error": {"type": "string"}}
        },
        "handlers.refreshRequest": {
            "type": "object",
            "required": ["refresh_token"],
            "properties": {"refresh_token": {"type": "string"}}
        },
        "services.Tokens": {
            "type": "object",
            "properties": {
                "access_token": {"type": "string"},
                "access_expires_at": {"type": "string"},
                "refresh_token": {"type": "string"}
            }
        },
        "models.LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {"email": {"type": "string"}, "password": {"type": "string"}}
        },
        "models.RegisterRequest": {
            "type": "object",
            "required": ["email", "name", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string", "minLength": 8},
                "name": {"type": "string"},
                "role": {"type": "string", "enum": ["tenant", "landlord"]}
            }
        },
        "models.PushTokenRequest": {
            "type": "object",
            "properties": {"push_token": {"type": "string"}}
        },
        "models.User": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "email": {"type": "string"},
                "name": {"type": "string"},
                "avatar_url": {"type": "string"},
                "role": {"type": "string"},
                "created_at": {"type": "string"}
            }
        },
        "models.Participant": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string"},
                "avatar_url": {"type": "string"}
            }
        },
        "models.Chat": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "participants": {"type": "array", "items": {"type": "string"}},
                "created_at": {"type": "string"}
            }
        },
        "models.ChatMessage": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "chatId": {"type": "string"},
                "senderId": {"type": "string"},
                "content": {"type": "string"},
                "createdAt": {"type": "string"},
                "sender": {"$ref": "#/definitions/models.Participant"}
            }
        },
        "models.ChatSummary": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "participants": {"type": "array", "items": {"$ref": "#/definitions/models.Participant"}},
                "lastMessage": {"$ref": "#/definitions/models.ChatMessage"},
                "created_at": {"type": "string"}
            }
        },
        "models.InitiateChatRequest": {
            "type": "object",
            "required": ["recipientId"],
            "properties": {"recipientId": {"type": "string"}}
        },
        "models.SendMessageRequest": {
            "type": "object",
            "required": ["content"],
            "properties": {"content": {"type": "string"}}
        }
    },
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "RentalHub API",
	Description:      "Rental marketplace messaging: auth, chats and the realtime chat websocket.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
