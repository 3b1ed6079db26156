package handler

import (
	"fmt"
	"net/http"

	json "github.com/goccy/go-json"
)

// OpenAPISpec returns the OpenAPI 3.0 specification for the salience
// gateway's HTTP surface.
func OpenAPISpec() map[string]interface{} {
	return map[string]interface{}{
		"openapi": "3.0.3",
		"info": map[string]interface{}{
			"title":       "Salience Gateway",
			"description": "Cache-first salience scoring service",
			"version":     "1.0.0",
		},
		"servers": []map[string]interface{}{
			{"url": "http://localhost:50052", "description": "Local development"},
		},
		"paths": openAPIPaths(),
		"components": map[string]interface{}{
			"securitySchemes": map[string]interface{}{
				"AdminToken": map[string]interface{}{
					"type":   "http",
					"scheme": "bearer",
				},
			},
			"schemas": openAPISchemas(),
		},
		"tags": []map[string]interface{}{
			{"name": "salience", "description": "Salience evaluation"},
			{"name": "cache", "description": "Cache administration"},
			{"name": "health", "description": "Liveness and readiness"},
		},
	}
}

func openAPIPaths() map[string]interface{} {
	return map[string]interface{}{
		"/v1/salience/evaluate": map[string]interface{}{
			"post": map[string]interface{}{
				"tags":        []string{"salience"},
				"summary":     "Score an event's salience, cache-first with storage fallback",
				"requestBody": map[string]interface{}{"content": map[string]interface{}{"application/json": map[string]interface{}{"schema": map[string]interface{}{"$ref": "#/components/schemas/EvaluateRequest"}}}},
				"responses": map[string]interface{}{
					"200": map[string]interface{}{"description": "Salience vector", "content": map[string]interface{}{"application/json": map[string]interface{}{"schema": map[string]interface{}{"$ref": "#/components/schemas/EvaluateResponse"}}}},
				},
			},
		},
		"/v1/cache/stats": map[string]interface{}{
			"get": map[string]interface{}{"tags": []string{"cache"}, "summary": "Cache hit/miss counters", "security": []map[string]interface{}{{"AdminToken": []string{}}}},
		},
		"/v1/cache/heuristics": map[string]interface{}{
			"get": map[string]interface{}{"tags": []string{"cache"}, "summary": "List cached heuristics", "security": []map[string]interface{}{{"AdminToken": []string{}}}},
		},
		"/v1/cache/heuristics/{id}": map[string]interface{}{
			"delete": map[string]interface{}{"tags": []string{"cache"}, "summary": "Evict a single heuristic", "security": []map[string]interface{}{{"AdminToken": []string{}}}},
		},
		"/v1/cache/heuristics/{id}/notify": map[string]interface{}{
			"post": map[string]interface{}{"tags": []string{"cache"}, "summary": "Notify the gateway a heuristic changed in storage", "security": []map[string]interface{}{{"AdminToken": []string{}}}},
		},
		"/v1/cache": map[string]interface{}{
			"delete": map[string]interface{}{"tags": []string{"cache"}, "summary": "Flush the entire heuristic cache", "security": []map[string]interface{}{{"AdminToken": []string{}}}},
		},
		"/healthz": map[string]interface{}{
			"get": map[string]interface{}{"tags": []string{"health"}, "summary": "Liveness probe"},
		},
		"/healthz/details": map[string]interface{}{
			"get": map[string]interface{}{"tags": []string{"health"}, "summary": "Liveness plus storage backend health"},
		},
	}
}

func openAPISchemas() map[string]interface{} {
	salienceFields := map[string]interface{}{}
	for _, f := range []string{"threat", "opportunity", "humor", "novelty", "goal_relevance", "social", "emotional", "actionability", "habituation"} {
		salienceFields[f] = map[string]interface{}{"type": "number"}
	}

	return map[string]interface{}{
		"EvaluateRequest": map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"event_id":   map[string]interface{}{"type": "string", "format": "uuid"},
				"event_text": map[string]interface{}{"type": "string"},
				"embedding":  map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "number"}},
			},
		},
		"EvaluateResponse": map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"event_id":                  map[string]interface{}{"type": "string", "format": "uuid"},
				"salience":                  map[string]interface{}{"type": "object", "properties": salienceFields},
				"from_cache":                map[string]interface{}{"type": "boolean"},
				"matched_heuristic_id":      map[string]interface{}{"type": "string"},
				"error":                     map[string]interface{}{"type": "string"},
				"novelty_detection_skipped": map[string]interface{}{"type": "boolean"},
			},
		},
	}
}

// OpenAPIHandler serves the OpenAPI spec at /openapi.json.
func OpenAPIHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(OpenAPISpec())
	}
}

// SwaggerUIHandler serves a minimal Swagger UI page pointed at /openapi.json.
func SwaggerUIHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		html := `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <title>Salience Gateway API</title>
    <link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui.css">
</head>
<body>
    <div id="swagger-ui"></div>
    <script src="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
    <script>
    SwaggerUIBundle({
        url: '/openapi.json',
        dom_id: '#swagger-ui',
        deepLinking: true,
        presets: [SwaggerUIBundle.presets.apis, SwaggerUIBundle.SwaggerUIStandalonePreset],
        layout: "BaseLayout"
    });
    </script>
</body>
</html>`
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, html)
	}
}
