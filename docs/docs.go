// Package docs holds the OpenAPI description served under /swagger.
// Regenerate with: swag init -g cmd/server/main.go -o docs
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
	"schemes": {{ marshal .Schemes }},
	"swagger": "2.0",
	"info": {
		"description": "{{escape .Description}}",
		"title": "{{.Title}}",
		"contact": {
			"name": "API Support",
			"email": "support@foodgram.local"
		},
		"license": {
			"name": "MIT",
			"url": "https://opensource.org/licenses/MIT"
		},
		"version": "{{.Version}}"
	},
	"host": "{{.Host}}",
	"basePath": "{{.BasePath}}",
	"paths": {
		"/auth/token/login": {
			"post": {
				"summary": "Obtain an auth token",
				"tags": [
					"auth"
				],
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK"
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					}
				},
				"parameters": [
					{
						"name": "body",
						"in": "body",
						"required": true,
						"schema": {
							"type": "object"
						},
						"description": "email and password"
					}
				]
			}
		},
		"/auth/token/logout": {
			"post": {
				"summary": "Revoke the current token",
				"tags": [
					"auth"
				],
				"produces": [
					"application/json"
				],
				"responses": {
					"204": {
						"description": "No Content"
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					}
				},
				"security": [
					{
						"TokenAuth": []
					}
				]
			}
		},
		"/users/": {
			"get": {
				"summary": "List users",
				"tags": [
					"users"
				],
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK"
					}
				},
				"parameters": [
					{
						"type": "integer",
						"name": "page",
						"in": "query"
					},
					{
						"type": "integer",
						"name": "limit",
						"in": "query"
					}
				]
			},
			"post": {
				"summary": "Register a user",
				"tags": [
					"users"
				],
				"produces": [
					"application/json"
				],
				"responses": {
					"201": {
						"description": "Created"
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					}
				},
				"parameters": [
					{
						"name": "body",
						"in": "body",
						"required": true,
						"schema": {
							"type": "object"
						},
						"description": "registration"
					}
				]
			}
		},
		"/users/{id}": {
			"get": {
				"summary": "Get a user profile",
				"tags": [
					"users"
				],
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK"
					},
					"404": {
						"description": "Not Found",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					}
				},
				"parameters": [
					{
						"type": "integer",
						"description": "id ",
						"name": "id",
						"in": "path",
						"required": true
					}
				]
			}
		},
		"/users/me": {
			"get": {
				"summary": "Get the current user",
				"tags": [
					"users"
				],
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK"
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					}
				},
				"security": [
					{
						"TokenAuth": []
					}
				]
			}
		},
		"/users/me/avatar": {
			"put": {
				"summary": "Set the avatar",
				"tags": [
					"users"
				],
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK"
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					}
				},
				"security": [
					{
						"TokenAuth": []
					}
				],
				"parameters": [
					{
						"name": "body",
						"in": "body",
						"required": true,
						"schema": {
							"type": "object"
						},
						"description": "base64 data URI"
					}
				]
			},
			"delete": {
				"summary": "Delete the avatar",
				"tags": [
					"users"
				],
				"produces": [
					"application/json"
				],
				"responses": {
					"204": {
						"description": "No Content"
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					}
				},
				"security": [
					{
						"TokenAuth": []
					}
				]
			}
		},
		"/users/set_password": {
			"post": {
				"summary": "Change the password",
				"tags": [
					"users"
				],
				"produces": [
					"application/json"
				],
				"responses": {
					"204": {
						"description": "No Content"
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					}
				},
				"security": [
					{
						"TokenAuth": []
					}
				],
				"parameters": [
					{
						"name": "body",
						"in": "body",
						"required": true,
						"schema": {
							"type": "object"
						},
						"description": "current_password and new_password"
					}
				]
			}
		},
		"/users/subscriptions": {
			"get": {
				"summary": "List followed authors",
				"tags": [
					"users"
				],
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK"
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					}
				},
				"security": [
					{
						"TokenAuth": []
					}
				],
				"parameters": [
					{
						"type": "integer",
						"name": "page",
						"in": "query"
					},
					{
						"type": "integer",
						"name": "limit",
						"in": "query"
					},
					{
						"type": "integer",
						"name": "recipes_limit",
						"in": "query"
					}
				]
			}
		},
		"/users/{id}/subscribe": {
			"post": {
				"summary": "Follow an author",
				"tags": [
					"users"
				],
				"produces": [
					"application/json"
				],
				"responses": {
					"201": {
						"description": "Created"
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					},
					"404": {
						"description": "Not Found",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					}
				},
				"security": [
					{
						"TokenAuth": []
					}
				],
				"parameters": [
					{
						"type": "integer",
						"description": "id ",
						"name": "id",
						"in": "path",
						"required": true
					},
					{
						"type": "integer",
						"name": "recipes_limit",
						"in": "query"
					}
				]
			},
			"delete": {
				"summary": "Unfollow an author",
				"tags": [
					"users"
				],
				"produces": [
					"application/json"
				],
				"responses": {
					"204": {
						"description": "No Content"
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					},
					"404": {
						"description": "Not Found",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					}
				},
				"security": [
					{
						"TokenAuth": []
					}
				],
				"parameters": [
					{
						"type": "integer",
						"description": "id ",
						"name": "id",
						"in": "path",
						"required": true
					}
				]
			}
		},
		"/tags/": {
			"get": {
				"summary": "List tags",
				"tags": [
					"catalog"
				],
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK"
					}
				}
			}
		},
		"/tags/{id}": {
			"get": {
				"summary": "Get a tag",
				"tags": [
					"catalog"
				],
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK"
					},
					"404": {
						"description": "Not Found",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					}
				},
				"parameters": [
					{
						"type": "integer",
						"description": "id ",
						"name": "id",
						"in": "path",
						"required": true
					}
				]
			}
		},
		"/ingredients/": {
			"get": {
				"summary": "Search ingredients by name prefix",
				"tags": [
					"catalog"
				],
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK"
					}
				},
				"parameters": [
					{
						"type": "string",
						"name": "name",
						"in": "query"
					}
				]
			}
		},
		"/ingredients/{id}": {
			"get": {
				"summary": "Get an ingredient",
				"tags": [
					"catalog"
				],
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK"
					},
					"404": {
						"description": "Not Found",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					}
				},
				"parameters": [
					{
						"type": "integer",
						"description": "id ",
						"name": "id",
						"in": "path",
						"required": true
					}
				]
			}
		},
		"/recipes/": {
			"get": {
				"summary": "List recipes",
				"tags": [
					"recipes"
				],
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK"
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					}
				},
				"parameters": [
					{
						"type": "integer",
						"name": "page",
						"in": "query"
					},
					{
						"type": "integer",
						"name": "limit",
						"in": "query"
					},
					{
						"type": "integer",
						"name": "author",
						"in": "query"
					},
					{
						"type": "array",
						"items": {
							"type": "string"
						},
						"collectionFormat": "multi",
						"name": "tags",
						"in": "query"
					},
					{
						"type": "integer",
						"name": "is_favorited",
						"in": "query"
					},
					{
						"type": "integer",
						"name": "is_in_shopping_cart",
						"in": "query"
					}
				]
			},
			"post": {
				"summary": "Create a recipe",
				"tags": [
					"recipes"
				],
				"produces": [
					"application/json"
				],
				"responses": {
					"201": {
						"description": "Created"
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					}
				},
				"security": [
					{
						"TokenAuth": []
					}
				],
				"parameters": [
					{
						"name": "body",
						"in": "body",
						"required": true,
						"schema": {
							"type": "object"
						},
						"description": "recipe"
					}
				]
			}
		},
		"/recipes/{id}": {
			"get": {
				"summary": "Get a recipe",
				"tags": [
					"recipes"
				],
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK"
					},
					"404": {
						"description": "Not Found",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					}
				},
				"parameters": [
					{
						"type": "integer",
						"description": "id ",
						"name": "id",
						"in": "path",
						"required": true
					}
				]
			},
			"patch": {
				"summary": "Update a recipe",
				"tags": [
					"recipes"
				],
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK"
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					},
					"403": {
						"description": "Forbidden",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					},
					"404": {
						"description": "Not Found",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					}
				},
				"security": [
					{
						"TokenAuth": []
					}
				],
				"parameters": [
					{
						"type": "integer",
						"description": "id ",
						"name": "id",
						"in": "path",
						"required": true
					},
					{
						"name": "body",
						"in": "body",
						"required": true,
						"schema": {
							"type": "object"
						},
						"description": "recipe"
					}
				]
			},
			"delete": {
				"summary": "Delete a recipe",
				"tags": [
					"recipes"
				],
				"produces": [
					"application/json"
				],
				"responses": {
					"204": {
						"description": "No Content"
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					},
					"403": {
						"description": "Forbidden",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					},
					"404": {
						"description": "Not Found",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					}
				},
				"security": [
					{
						"TokenAuth": []
					}
				],
				"parameters": [
					{
						"type": "integer",
						"description": "id ",
						"name": "id",
						"in": "path",
						"required": true
					}
				]
			}
		},
		"/recipes/{id}/get-link": {
			"get": {
				"summary": "Get the short link of a recipe",
				"tags": [
					"recipes"
				],
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK"
					},
					"404": {
						"description": "Not Found",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					}
				},
				"parameters": [
					{
						"type": "integer",
						"description": "id ",
						"name": "id",
						"in": "path",
						"required": true
					}
				]
			}
		},
		"/recipes/{id}/favorite": {
			"post": {
				"summary": "Add to favorites",
				"tags": [
					"recipes"
				],
				"produces": [
					"application/json"
				],
				"responses": {
					"201": {
						"description": "Created"
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					},
					"404": {
						"description": "Not Found",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					}
				},
				"security": [
					{
						"TokenAuth": []
					}
				],
				"parameters": [
					{
						"type": "integer",
						"description": "id ",
						"name": "id",
						"in": "path",
						"required": true
					}
				]
			},
			"delete": {
				"summary": "Remove from favorites",
				"tags": [
					"recipes"
				],
				"produces": [
					"application/json"
				],
				"responses": {
					"204": {
						"description": "No Content"
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					},
					"404": {
						"description": "Not Found",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					}
				},
				"security": [
					{
						"TokenAuth": []
					}
				],
				"parameters": [
					{
						"type": "integer",
						"description": "id ",
						"name": "id",
						"in": "path",
						"required": true
					}
				]
			}
		},
		"/recipes/{id}/shopping_cart": {
			"post": {
				"summary": "Add to the shopping cart",
				"tags": [
					"recipes"
				],
				"produces": [
					"application/json"
				],
				"responses": {
					"201": {
						"description": "Created"
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					},
					"404": {
						"description": "Not Found",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					}
				},
				"security": [
					{
						"TokenAuth": []
					}
				],
				"parameters": [
					{
						"type": "integer",
						"description": "id ",
						"name": "id",
						"in": "path",
						"required": true
					}
				]
			},
			"delete": {
				"summary": "Remove from the shopping cart",
				"tags": [
					"recipes"
				],
				"produces": [
					"application/json"
				],
				"responses": {
					"204": {
						"description": "No Content"
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					},
					"404": {
						"description": "Not Found",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					}
				},
				"security": [
					{
						"TokenAuth": []
					}
				],
				"parameters": [
					{
						"type": "integer",
						"description": "id ",
						"name": "id",
						"in": "path",
						"required": true
					}
				]
			}
		},
		"/recipes/download_shopping_cart": {
			"get": {
				"summary": "Download the shopping list",
				"tags": [
					"recipes"
				],
				"produces": [
					"application/pdf",
					"text/plain"
				],
				"responses": {
					"200": {
						"description": "OK"
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					},
					"404": {
						"description": "Not Found",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					}
				},
				"security": [
					{
						"TokenAuth": []
					}
				],
				"parameters": [
					{
						"enum": [
							"pdf",
							"txt"
						],
						"type": "string",
						"name": "format",
						"in": "query"
					}
				]
			}
		},
		"/feature-flags": {
			"get": {
				"summary": "Show feature flags",
				"tags": [
					"admin"
				],
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK"
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					},
					"403": {
						"description": "Forbidden",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					}
				},
				"security": [
					{
						"TokenAuth": []
					}
				]
			}
		},
		"/ws/ticket": {
			"post": {
				"summary": "Issue a single-use WebSocket ticket",
				"tags": [
					"realtime"
				],
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK"
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					}
				},
				"security": [
					{
						"TokenAuth": []
					}
				]
			}
		},
		"/ws": {
			"get": {
				"summary": "Open the notifications socket",
				"tags": [
					"realtime"
				],
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK"
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					},
					"404": {
						"description": "Not Found",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					},
					"426": {
						"description": "Upgrade Required",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					}
				},
				"security": [
					{
						"TokenAuth": []
					}
				],
				"parameters": [
					{
						"type": "string",
						"name": "ticket",
						"in": "query"
					}
				]
			}
		}
	},
	"definitions": {
		"models.ErrorResponse": {
			"type": "object",
			"properties": {
				"code": {
					"type": "string"
				},
				"error": {
					"type": "string"
				},
				"details": {
					"type": "string"
				},
				"fields": {
					"type": "object",
					"additionalProperties": {
						"type": "string"
					}
				}
			}
		}
	},
	"securityDefinitions": {
		"TokenAuth": {
			"description": "Type \"Token\" or \"Bearer\" followed by a space and the issued token.",
			"type": "apiKey",
			"name": "Authorization",
			"in": "header"
		}
	}
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8375",
	BasePath:         "/api",
	Schemes:          []string{"http", "https"},
	Title:            "Foodgram API",
	Description:      "Recipe sharing API with tags, ingredients, favorites, shopping lists and subscriptions.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
