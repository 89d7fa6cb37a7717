// Package swagger carries the OpenAPI document served under /docs.
package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "MerryKids API",
        "description": "Staff records, admissions intake and account management for MerryKids.",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": ["http", "https"],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Auth", "description": "Login and password management"},
        {"name": "Users", "description": "Account provisioning"},
        {"name": "Staff", "description": "Teacher records and their login accounts"},
        {"name": "Admissions", "description": "Announcement window and application intake"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Exchange credentials for an access token",
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"},
                    "403": {"description": "Account inactive"}
                }
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Auth"],
                "summary": "Current token claims",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}}
            }
        },
        "/auth/change-password": {
            "post": {
                "tags": ["Auth"],
                "summary": "Replace the current password",
                "security": [{"BearerAuth": []}],
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/ChangePasswordRequest"}}],
                "responses": {"200": {"description": "New access token"}, "401": {"description": "Wrong current password"}}
            }
        },
        "/auth/forgot-password": {
            "post": {
                "tags": ["Auth"],
                "summary": "Request a password reset link",
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/ForgotPasswordRequest"}}],
                "responses": {"202": {"description": "Accepted whether or not the email is registered"}}
            }
        },
        "/auth/reset-password": {
            "post": {
                "tags": ["Auth"],
                "summary": "Set a new password with a reset token",
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/ResetPasswordRequest"}}],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Invalid or expired token"}}
            }
        },
        "/admin/users": {
            "post": {
                "tags": ["Users"],
                "summary": "Provision a login account with a temporary password",
                "security": [{"BearerAuth": []}],
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/CreateUserRequest"}}],
                "responses": {"201": {"description": "Created"}, "409": {"description": "Email already in use"}}
            }
        },
        "/admin/staff": {
            "get": {
                "tags": ["Staff"],
                "summary": "List staff",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"in": "query", "name": "search", "type": "string"},
                    {"in": "query", "name": "status", "type": "string", "enum": ["ACTIVE", "INACTIVE"]},
                    {"in": "query", "name": "level", "type": "string"},
                    {"in": "query", "name": "designation", "type": "string"},
                    {"in": "query", "name": "page", "type": "integer"},
                    {"in": "query", "name": "page_size", "type": "integer"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "post": {
                "tags": ["Staff"],
                "summary": "Create a staff record",
                "security": [{"BearerAuth": []}],
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"in": "formData", "name": "data", "type": "string", "required": true, "description": "JSON staff payload"},
                    {"in": "formData", "name": "profilePhoto", "type": "file"}
                ],
                "responses": {"201": {"description": "Created"}, "409": {"description": "Email already in use"}}
            }
        },
        "/admin/staff/with-account": {
            "post": {
                "tags": ["Staff"],
                "summary": "Create a staff record and its login account",
                "security": [{"BearerAuth": []}],
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"in": "formData", "name": "data", "type": "string", "required": true},
                    {"in": "formData", "name": "profilePhoto", "type": "file"}
                ],
                "responses": {"201": {"description": "Created, meta.warning set when the account could not be provisioned"}}
            }
        },
        "/admin/staff/export": {
            "get": {
                "tags": ["Staff"],
                "summary": "Export staff as CSV or PDF",
                "security": [{"BearerAuth": []}],
                "produces": ["text/csv", "application/pdf"],
                "parameters": [{"in": "query", "name": "format", "type": "string", "enum": ["csv", "pdf"]}],
                "responses": {"200": {"description": "File"}}
            }
        },
        "/admin/staff/{id}": {
            "get": {
                "tags": ["Staff"],
                "summary": "Get a staff record",
                "security": [{"BearerAuth": []}],
                "parameters": [{"in": "path", "name": "id", "type": "string", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}}
            },
            "put": {
                "tags": ["Staff"],
                "summary": "Update a staff record",
                "security": [{"BearerAuth": []}],
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"in": "path", "name": "id", "type": "string", "required": true},
                    {"in": "formData", "name": "data", "type": "string", "required": true},
                    {"in": "formData", "name": "profilePhoto", "type": "file"}
                ],
                "responses": {"200": {"description": "OK"}}
            },
            "delete": {
                "tags": ["Staff"],
                "summary": "Soft delete a staff record and disable its account",
                "security": [{"BearerAuth": []}],
                "parameters": [{"in": "path", "name": "id", "type": "string", "required": true}],
                "responses": {"204": {"description": "Deleted"}}
            }
        },
        "/admin/staff/{id}/photo": {
            "get": {
                "tags": ["Staff"],
                "summary": "Stream the profile photo",
                "security": [{"BearerAuth": []}],
                "parameters": [{"in": "path", "name": "id", "type": "string", "required": true}],
                "responses": {"200": {"description": "Image"}, "404": {"description": "No photo"}}
            }
        },
        "/admin/staff/{id}/account": {
            "post": {
                "tags": ["Staff"],
                "summary": "Provision or reactivate the login account",
                "security": [{"BearerAuth": []}],
                "parameters": [{"in": "path", "name": "id", "type": "string", "required": true}],
                "responses": {"200": {"description": "OK"}}
            },
            "delete": {
                "tags": ["Staff"],
                "summary": "Disable the login account",
                "security": [{"BearerAuth": []}],
                "parameters": [{"in": "path", "name": "id", "type": "string", "required": true}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/public/admissions/announcement": {
            "get": {
                "tags": ["Admissions"],
                "summary": "Current admissions announcement, null when none",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/public/admissions/announcement/pdf": {
            "get": {
                "tags": ["Admissions"],
                "summary": "Download the application form",
                "produces": ["application/pdf"],
                "responses": {"200": {"description": "PDF"}, "404": {"description": "No form attached"}}
            }
        },
        "/public/admissions/submissions": {
            "post": {
                "tags": ["Admissions"],
                "summary": "Submit a completed application",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"in": "formData", "name": "child_full_name", "type": "string", "required": true},
                    {"in": "formData", "name": "date_of_birth", "type": "string", "format": "date", "required": true},
                    {"in": "formData", "name": "level_applying_for", "type": "string", "required": true},
                    {"in": "formData", "name": "guardian_full_name", "type": "string", "required": true},
                    {"in": "formData", "name": "email", "type": "string", "required": true},
                    {"in": "formData", "name": "phone", "type": "string", "required": true},
                    {"in": "formData", "name": "address", "type": "string", "required": true},
                    {"in": "formData", "name": "filledApplicationPdf", "type": "file", "required": true}
                ],
                "responses": {"201": {"description": "Reference number issued"}, "403": {"description": "Admissions closed"}}
            }
        },
        "/admin/admissions/announcement": {
            "post": {
                "tags": ["Admissions"],
                "summary": "Create or replace the announcement",
                "security": [{"BearerAuth": []}],
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"in": "formData", "name": "message", "type": "string", "required": true},
                    {"in": "formData", "name": "open_date", "type": "string", "format": "date", "required": true},
                    {"in": "formData", "name": "close_date", "type": "string", "format": "date", "required": true},
                    {"in": "formData", "name": "applicationPdf", "type": "file"}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/admin/admissions/submissions": {
            "get": {
                "tags": ["Admissions"],
                "summary": "List submissions",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"in": "query", "name": "search", "type": "string"},
                    {"in": "query", "name": "status", "type": "string"},
                    {"in": "query", "name": "level", "type": "string"},
                    {"in": "query", "name": "page", "type": "integer"},
                    {"in": "query", "name": "page_size", "type": "integer"}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/admin/admissions/submissions/export": {
            "get": {
                "tags": ["Admissions"],
                "summary": "Export submissions as CSV or PDF",
                "security": [{"BearerAuth": []}],
                "parameters": [{"in": "query", "name": "format", "type": "string", "enum": ["csv", "pdf"]}],
                "responses": {"200": {"description": "File"}}
            }
        },
        "/admin/admissions/submissions/{id}": {
            "get": {
                "tags": ["Admissions"],
                "summary": "Get a submission",
                "security": [{"BearerAuth": []}],
                "parameters": [{"in": "path", "name": "id", "type": "string", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}}
            }
        },
        "/admin/admissions/submissions/{id}/pdf": {
            "get": {
                "tags": ["Admissions"],
                "summary": "Download the submitted application",
                "security": [{"BearerAuth": []}],
                "parameters": [{"in": "path", "name": "id", "type": "string", "required": true}],
                "responses": {"200": {"description": "PDF"}}
            }
        },
        "/admin/admissions/submissions/{id}/status": {
            "put": {
                "tags": ["Admissions"],
                "summary": "Move a submission through review",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"in": "path", "name": "id", "type": "string", "required": true},
                    {"in": "body", "name": "body", "required": true, "schema": {"type": "object", "properties": {"status": {"type": "string"}}}}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/admin/admissions/submissions/{id}/note": {
            "put": {
                "tags": ["Admissions"],
                "summary": "Set the admin note",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"in": "path", "name": "id", "type": "string", "required": true},
                    {"in": "body", "name": "body", "required": true, "schema": {"type": "object", "properties": {"note": {"type": "string"}}}}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {"email": {"type": "string"}, "password": {"type": "string"}}
        },
        "ChangePasswordRequest": {
            "type": "object",
            "properties": {"current_password": {"type": "string"}, "new_password": {"type": "string"}}
        },
        "ForgotPasswordRequest": {
            "type": "object",
            "properties": {"email": {"type": "string"}}
        },
        "ResetPasswordRequest": {
            "type": "object",
            "properties": {"token": {"type": "string"}, "new_password": {"type": "string"}}
        },
        "CreateUserRequest": {
            "type": "object",
            "properties": {"email": {"type": "string"}, "role": {"type": "string", "enum": ["TEACHER", "PARENT"]}}
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"},
                "total_pages": {"type": "integer"}
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
                "success": {"type": "boolean"},
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
