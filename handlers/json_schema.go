package handlers

import "github.com/xeipuuv/gojsonschema"

const AnalyzeRequestSchemaDefinition = `{
	"type": "object",
	"properties": {
		"url": { "type": "string", "minLength": 1 },
		"settings": {
			"type": "object",
			"properties": {
				"topN": { "type": "integer", "minimum": 1 },
				"minDurationS": { "type": "number", "exclusiveMinimum": 0 },
				"maxDurationS": { "type": "number", "exclusiveMinimum": 0 },
				"minGapS": { "type": "number", "minimum": 0 },
				"intensityThreshold": { "type": "number", "minimum": 0, "maximum": 1 }
			}
		}
	},
	"required": ["url"]
}`

const SubtitlesRequestSchemaDefinition = `{
	"type": "object",
	"properties": {
		"url": { "type": "string", "minLength": 1 },
		"segments": {
			"type": "array",
			"items": {
				"type": "object",
				"properties": {
					"id": { "type": "string", "minLength": 1 },
					"startS": { "type": "number", "minimum": 0 },
					"endS": { "type": "number", "minimum": 0 }
				},
				"required": ["id", "startS", "endS"]
			}
		}
	},
	"required": ["url", "segments"]
}`

const CutRequestSchemaDefinition = `{
	"type": "object",
	"properties": {
		"url": { "type": "string", "minLength": 1 },
		"segments": {
			"type": "array",
			"minItems": 1,
			"items": {
				"type": "object",
				"properties": {
					"id": { "type": "string", "minLength": 1 },
					"startS": { "type": "number", "minimum": 0 },
					"endS": { "type": "number", "minimum": 0 }
				},
				"required": ["id", "startS", "endS"]
			}
		},
		"cropMode": { "type": "string", "enum": ["center", "blur_pad", "letterbox", "smart_reframe"] },
		"captions": { "type": "boolean" },
		"videoTitle": { "type": "string" },
		"quality": { "type": "integer", "enum": [480, 720, 1080] },
		"translateTo": { "type": "string" },
		"translateMode": { "type": "string", "enum": ["subtitles", "dub"] },
		"editedSubtitles": { "type": "object" }
	},
	"required": ["url", "segments", "cropMode"]
}`

const BatchRequestSchemaDefinition = `{
	"type": "object",
	"properties": {
		"urls": {
			"type": "array",
			"minItems": 1,
			"maxItems": 20,
			"items": { "type": "string", "minLength": 1 }
		},
		"settings": { "type": "object" },
		"cropMode": { "type": "string", "enum": ["center", "blur_pad", "letterbox", "smart_reframe"] },
		"captions": { "type": "boolean" }
	},
	"required": ["urls"]
}`

var inputSchemas = map[string]string{
	"Analyze":   AnalyzeRequestSchemaDefinition,
	"Subtitles": SubtitlesRequestSchemaDefinition,
	"Cut":       CutRequestSchemaDefinition,
	"Batch":     BatchRequestSchemaDefinition,
}

func compileJsonSchemas() map[string]*gojsonschema.Schema {
	compiled := make(map[string]*gojsonschema.Schema, len(inputSchemas))
	for name, text := range inputSchemas {
		schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(text))
		if err != nil {
			// raise panic on program start; fix schema text
			panic(err)
		}
		compiled[name] = schema
	}
	return compiled
}

// Run compile step on program start:
var inputSchemasCompiled = compileJsonSchemas()
