package docs

import "github.com/swaggo/swag"

const docTemplate = `{
  "swagger": "2.0",
  "info": {
    "title": "Segment Backend",
    "description": "Objective-driven customer segmentation: interpret, resolve, score, refine",
    "version": "1.0"
  },
  "basePath": "/",
  "paths": {
    "/api/v1/campaigns/analyze": {
      "post": {
        "tags": ["campaigns"],
        "summary": "Analyze a campaign objective",
        "consumes": ["application/json"],
        "produces": ["application/json"],
        "parameters": [
          {"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/AnalyzeRequest"}}
        ],
        "responses": {
          "200": {"description": "Segment preview, trigger candidates and explanation", "schema": {"type": "object"}},
          "400": {"description": "Invalid request", "schema": {"$ref": "#/definitions/Error"}},
          "422": {"description": "Interpretation failed", "schema": {"$ref": "#/definitions/Error"}},
          "429": {"description": "Interpretation service rate limited", "schema": {"$ref": "#/definitions/Error"}},
          "502": {"description": "Warehouse error", "schema": {"$ref": "#/definitions/Error"}}
        }
      }
    },
    "/api/v1/segments/preview-filters": {
      "post": {
        "tags": ["segments"],
        "summary": "Preview refinement filters",
        "consumes": ["application/json"],
        "produces": ["application/json"],
        "parameters": [
          {"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/PreviewFiltersRequest"}}
        ],
        "responses": {
          "200": {"description": "Refinement result", "schema": {"type": "object"}},
          "400": {"description": "Invalid request", "schema": {"$ref": "#/definitions/Error"}}
        }
      }
    },
    "/api/v1/segments": {
      "post": {
        "tags": ["segments"],
        "summary": "Create a segment",
        "consumes": ["application/json"],
        "produces": ["application/json"],
        "parameters": [
          {"in": "header", "name": "X-Admin-Key", "type": "string", "required": false},
          {"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/CreateSegmentRequest"}}
        ],
        "responses": {
          "201": {"description": "Created segment", "schema": {"type": "object"}},
          "400": {"description": "Invalid request", "schema": {"$ref": "#/definitions/Error"}},
          "401": {"description": "Invalid admin key", "schema": {"$ref": "#/definitions/Error"}}
        }
      }
    },
    "/api/v1/segments/{id}": {
      "get": {
        "tags": ["segments"],
        "summary": "Get a segment",
        "produces": ["application/json"],
        "parameters": [{"in": "path", "name": "id", "type": "string", "required": true}],
        "responses": {
          "200": {"description": "Segment", "schema": {"type": "object"}},
          "404": {"description": "Not found", "schema": {"$ref": "#/definitions/Error"}}
        }
      }
    },
    "/api/v1/segments/{id}/customers": {
      "get": {
        "tags": ["segments"],
        "summary": "List segment customers",
        "produces": ["application/json"],
        "parameters": [
          {"in": "path", "name": "id", "type": "string", "required": true},
          {"in": "query", "name": "limit", "type": "integer", "required": false}
        ],
        "responses": {
          "200": {"description": "Customers page", "schema": {"type": "object"}},
          "404": {"description": "Not found", "schema": {"$ref": "#/definitions/Error"}}
        }
      }
    },
    "/api/v1/overview/stats": {
      "get": {
        "tags": ["overview"],
        "summary": "Overview statistics",
        "produces": ["application/json"],
        "parameters": [{"in": "query", "name": "refresh", "type": "boolean", "required": false}],
        "responses": {
          "200": {"description": "Overview statistics", "schema": {"type": "object"}}
        }
      }
    }
  },
  "definitions": {
    "AnalyzeRequest": {
      "type": "object",
      "required": ["objective"],
      "properties": {"objective": {"type": "string"}}
    },
    "PreviewFiltersRequest": {
      "type": "object",
      "required": ["campaign_objective_object"],
      "properties": {
        "campaign_objective_object": {"type": "object"},
        "new_filters": {"$ref": "#/definitions/RefinementFilters"},
        "selected_trigger": {"type": "string"}
      }
    },
    "CreateSegmentRequest": {
      "type": "object",
      "required": ["campaign_objective_object", "trigger"],
      "properties": {
        "campaign_objective_object": {"type": "object"},
        "trigger": {"type": "string"},
        "additional_filters": {"$ref": "#/definitions/RefinementFilters"}
      }
    },
    "RefinementFilters": {
      "type": "object",
      "properties": {
        "location_country": {"type": "string"},
        "location_city": {"type": "string"},
        "clv_min": {"type": "number", "minimum": 0, "maximum": 1},
        "cart_value_min": {"type": "number", "minimum": 0}
      }
    },
    "Error": {
      "type": "object",
      "properties": {
        "error": {
          "type": "object",
          "properties": {
            "code": {"type": "string"},
            "message": {"type": "string"},
            "details": {}
          }
        }
      }
    }
  }
}`

func init() {
	swag.Register(swag.Name, &s{})
}

type s struct{}

func (s *s) ReadDoc() string {
	return docTemplate
}
