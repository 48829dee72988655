// Package signup holds the Swagger document for the signup service.
// Regenerate with: swag init -g internal/signup/http/router.go -o api/signup
package signup

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "AussieBroadWAN Team",
            "url": "https://github.com/aussiebroadwan/signup"
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
        "/.well-known/jwks.json": {
            "get": {
                "description": "Returns the JSON Web Key Set used to verify registration tokens.",
                "produces": ["application/json"],
                "tags": ["well-known"],
                "summary": "Get JWKS",
                "responses": {
                    "200": {"description": "The JSON Web Key Set", "schema": {"$ref": "#/definitions/signupsdk.JWKSResponse"}}
                }
            }
        },
        "/livez": {
            "get": {
                "description": "Always 200 while the process is serving requests.",
                "produces": ["application/json"],
                "tags": ["Health"],
                "summary": "Liveness",
                "responses": {
                    "200": {"description": "status, uptime, version", "schema": {"$ref": "#/definitions/signupsdk.HealthResponse"}}
                }
            }
        },
        "/readyz": {
            "get": {
                "description": "Reports whether the database answers and a signing key is loaded.",
                "produces": ["application/json"],
                "tags": ["Health"],
                "summary": "Readiness",
                "responses": {
                    "200": {"description": "status, uptime, version, checks", "schema": {"$ref": "#/definitions/signupsdk.HealthResponse"}},
                    "503": {"description": "one or more checks failed", "schema": {"$ref": "#/definitions/signupsdk.HealthResponse"}}
                }
            }
        },
        "/v1/registrations": {
            "post": {
                "description": "Create a user and send the registration passcode to their phone.\nThe passcode is delivered asynchronously if the provider is slow or down; notification_status reports what happened inline.",
                "consumes": ["application/json", "application/x-www-form-urlencoded"],
                "produces": ["application/json"],
                "tags": ["Registration"],
                "summary": "Register",
                "parameters": [
                    {"description": "Registration form", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/signupsdk.RegisterRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created user and registration token", "schema": {"$ref": "#/definitions/signupsdk.RegisterResponse"}},
                    "400": {"description": "Malformed body", "schema": {"$ref": "#/definitions/signupsdk.ErrorResponse"}},
                    "422": {"description": "Field errors", "schema": {"$ref": "#/definitions/signupsdk.ValidationErrorResponse"}},
                    "429": {"description": "Rate limited", "schema": {"$ref": "#/definitions/signupsdk.ErrorResponse"}},
                    "500": {"description": "Server error", "schema": {"$ref": "#/definitions/signupsdk.ErrorResponse"}}
                }
            }
        },
        "/v1/registrations/resend": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Send the registration passcode again. The code itself does not change.",
                "produces": ["application/json"],
                "tags": ["Registration"],
                "summary": "Resend passcode",
                "responses": {
                    "202": {"description": "Queued, with inline delivery status", "schema": {"$ref": "#/definitions/signupsdk.ResendPasscodeResponse"}},
                    "400": {"description": "passcode_expired", "schema": {"$ref": "#/definitions/signupsdk.ErrorResponse"}},
                    "401": {"description": "Missing or invalid registration token", "schema": {"$ref": "#/definitions/signupsdk.ErrorResponse"}},
                    "409": {"description": "Already verified", "schema": {"$ref": "#/definitions/signupsdk.ErrorResponse"}},
                    "429": {"description": "Rate limited, or too_many_attempts once the passcode is locked", "schema": {"$ref": "#/definitions/signupsdk.ErrorResponse"}}
                }
            }
        },
        "/v1/registrations/token": {
            "post": {
                "description": "Exchange email and password for a new registration token while the phone number is unverified.",
                "consumes": ["application/json", "application/x-www-form-urlencoded"],
                "produces": ["application/json"],
                "tags": ["Registration"],
                "summary": "Reissue registration token",
                "parameters": [
                    {"description": "Credentials", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/signupsdk.RegistrationTokenRequest"}}
                ],
                "responses": {
                    "200": {"description": "Fresh registration token", "schema": {"$ref": "#/definitions/signupsdk.RegistrationTokenResponse"}},
                    "401": {"description": "invalid_credentials", "schema": {"$ref": "#/definitions/signupsdk.ErrorResponse"}},
                    "409": {"description": "Already verified", "schema": {"$ref": "#/definitions/signupsdk.ErrorResponse"}},
                    "422": {"description": "email or password missing", "schema": {"$ref": "#/definitions/signupsdk.ValidationErrorResponse"}},
                    "429": {"description": "Rate limited", "schema": {"$ref": "#/definitions/signupsdk.ErrorResponse"}}
                }
            }
        },
        "/v1/registrations/verify": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Confirm the phone number with the passcode sent at registration.",
                "consumes": ["application/json", "application/x-www-form-urlencoded"],
                "produces": ["application/json"],
                "tags": ["Registration"],
                "summary": "Verify passcode",
                "parameters": [
                    {"description": "Passcode", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/signupsdk.VerifyPasscodeRequest"}}
                ],
                "responses": {
                    "200": {"description": "Phone verified", "schema": {"$ref": "#/definitions/signupsdk.VerifyPasscodeResponse"}},
                    "400": {"description": "invalid_passcode or passcode_expired", "schema": {"$ref": "#/definitions/signupsdk.ErrorResponse"}},
                    "401": {"description": "Missing or invalid registration token", "schema": {"$ref": "#/definitions/signupsdk.ErrorResponse"}},
                    "404": {"description": "User no longer exists", "schema": {"$ref": "#/definitions/signupsdk.ErrorResponse"}},
                    "409": {"description": "Already verified", "schema": {"$ref": "#/definitions/signupsdk.ErrorResponse"}},
                    "422": {"description": "otp missing", "schema": {"$ref": "#/definitions/signupsdk.ValidationErrorResponse"}},
                    "429": {"description": "Rate limited, or too_many_attempts once the passcode is locked", "schema": {"$ref": "#/definitions/signupsdk.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "jwtx.JWK": {
            "type": "object",
            "properties": {
                "alg": {"type": "string"},
                "crv": {"type": "string"},
                "kid": {"type": "string"},
                "kty": {"type": "string"},
                "use": {"type": "string"},
                "x": {"type": "string"}
            }
        },
        "signupsdk.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "error_description": {"type": "string"}
            }
        },
        "signupsdk.HealthChecks": {
            "type": "object",
            "properties": {
                "database": {"type": "string"},
                "signer": {"type": "string"}
            }
        },
        "signupsdk.HealthResponse": {
            "type": "object",
            "properties": {
                "checks": {"$ref": "#/definitions/signupsdk.HealthChecks"},
                "status": {"type": "string"},
                "uptime": {"type": "string"},
                "version": {"type": "string"}
            }
        },
        "signupsdk.JWKSResponse": {
            "type": "object",
            "properties": {
                "keys": {"type": "array", "items": {"$ref": "#/definitions/jwtx.JWK"}}
            }
        },
        "signupsdk.RegisterRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "name": {"type": "string"},
                "password": {"type": "string"},
                "password_confirmation": {"type": "string"},
                "phone_number": {"type": "string"}
            }
        },
        "signupsdk.RegisterResponse": {
            "type": "object",
            "properties": {
                "created_at": {"type": "string"},
                "email": {"type": "string"},
                "expires_in": {"type": "integer"},
                "name": {"type": "string"},
                "notification_status": {"type": "string"},
                "phone_number": {"type": "string"},
                "registration_token": {"type": "string"},
                "token_type": {"type": "string"},
                "user_id": {"type": "string"}
            }
        },
        "signupsdk.RegistrationTokenRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "signupsdk.RegistrationTokenResponse": {
            "type": "object",
            "properties": {
                "expires_in": {"type": "integer"},
                "registration_token": {"type": "string"},
                "token_type": {"type": "string"},
                "user_id": {"type": "string"}
            }
        },
        "signupsdk.ResendPasscodeResponse": {
            "type": "object",
            "properties": {
                "notification_status": {"type": "string"}
            }
        },
        "signupsdk.ValidationErrorResponse": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "details": {"type": "object", "additionalProperties": {"type": "string"}},
                "message": {"type": "string"}
            }
        },
        "signupsdk.VerifyPasscodeRequest": {
            "type": "object",
            "properties": {
                "otp": {"type": "string"}
            }
        },
        "signupsdk.VerifyPasscodeResponse": {
            "type": "object",
            "properties": {
                "phone_verified_at": {"type": "string"},
                "user_id": {"type": "string"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "Registration token. Format: \"Bearer {token}\".",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "0.1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{"http", "https"},
	Title:            "Signup Service API",
	Description:      "User registration with a one-time passcode delivered over WhatsApp or SMS.\n\nRegistration returns a short lived EdDSA registration token used to verify the passcode.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
