package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger registers minimal Swagger/OpenAPI endpoints.
// - GET /swagger/index.html  -> a small HTML page that loads the OpenAPI JSON
// - GET /swagger/doc.json    -> machine-readable OpenAPI JSON
func RegisterSwagger(rg *gin.Engine) {
	rg.GET("/swagger/index.html", func(c *gin.Context) {
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.String(http.StatusOK, swaggerHTML)
	})

	rg.GET("/swagger/doc.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(swaggerJSON))
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>docbase - Swagger</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@4/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@4/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/swagger/doc.json',
        dom_id: '#swagger-ui',
      })
    </script>
  </body>
</html>`

const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "docbase", "version": "v0.1.0" },
  "components": {
    "securitySchemes": { "bearer": { "type": "http", "scheme": "bearer", "bearerFormat": "JWT" } },
    "schemas": {
      "Collection": { "type": "object", "properties": { "address": {"type":"string"}, "authority": {"type":"string"}, "count": {"type":"integer","format":"uint64"} } },
      "Document": { "type": "object", "properties": { "address": {"type":"string"}, "authority": {"type":"string"}, "collection": {"type":"string"}, "content": {"type":"string","maxLength":32} } },
      "Error": { "type": "object", "properties": { "error": {"type":"string"} } }
    }
  },
  "paths": {
    "/auth/challenge": {
      "post": { "summary": "Issue a login nonce", "responses": { "200": { "description": "nonce and message to sign" } } }
    },
    "/auth/login": {
      "post": {
        "summary": "Login with an ed25519 signature over the challenge message",
        "requestBody": { "content": { "application/json": { "schema": {"type":"object","required":["authority","nonce","signature"],"properties":{"authority":{"type":"string"},"nonce":{"type":"string"},"signature":{"type":"string"}}}}}},
        "responses": { "200": { "description": "tokens returned" }, "401": { "description": "bad signature or challenge" } }
      }
    },
    "/auth/refresh": {
      "post": { "summary": "Rotate refresh token and issue a new access token", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"refresh_token":{"type":"string"}}}}}}, "responses": { "200": { "description": "new tokens" }, "401": { "description": "invalid refresh" } } }
    },
    "/auth/logout": {
      "post": { "summary": "Logout; with all=true end every session of the authority", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"refresh_token":{"type":"string"},"all":{"type":"boolean"}}}}}}, "responses": { "200": { "description": "logged out" }, "401": { "description": "invalid refresh" } } }
    },
    "/api/v1/collections": {
      "post": { "summary": "Create a collection owned by the signer", "security": [{"bearer":[]}],
        "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"address":{"type":"string"},"seed":{"type":"string"}}}}}},
        "responses": { "201": { "description": "created" }, "401": { "description": "missing signer" }, "409": { "description": "address in use" } } }
    },
    "/api/v1/collections/{address}": {
      "get": { "summary": "Fetch a collection", "responses": { "200": { "description": "collection" }, "404": { "description": "not found" } } }
    },
    "/api/v1/collections/{address}/documents": {
      "post": { "summary": "Create a document in the collection", "security": [{"bearer":[]}],
        "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"address":{"type":"string"},"content":{"type":"string"}}}}}},
        "responses": { "201": { "description": "created" }, "404": { "description": "collection not found" }, "409": { "description": "address in use" }, "413": { "description": "content over 32 bytes" }, "422": { "description": "count overflow" } } }
    },
    "/api/v1/documents/{address}": {
      "get": { "summary": "Fetch a document", "responses": { "200": { "description": "document" }, "404": { "description": "not found" } } },
      "put": { "summary": "Replace document content", "security": [{"bearer":[]}],
        "requestBody": { "content": { "application/json": { "schema": {"type":"object","required":["collection"],"properties":{"collection":{"type":"string"},"content":{"type":"string"}}}}}},
        "responses": { "200": { "description": "updated" }, "403": { "description": "signer is not the document authority" }, "413": { "description": "content over 32 bytes" } } },
      "delete": { "summary": "Delete a document", "security": [{"bearer":[]}],
        "parameters": [{"name":"collection","in":"query","required":true,"schema":{"type":"string"}}],
        "responses": { "200": { "description": "deleted; returns the collection" }, "403": { "description": "signer is not the document authority" }, "422": { "description": "count underflow" } } }
    },
    "/health": { "get": { "summary": "Liveness check", "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Readiness check", "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } },
    "/metrics": { "get": { "summary": "Prometheus metrics", "responses": { "200": { "description": "metrics" } } } }
  }
}`
