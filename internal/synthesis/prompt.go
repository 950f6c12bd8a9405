package synthesis

import "strings"

const systemPrompt = `You are a senior product requirements analyst. You integrate the analyses of many project documents into one structured project knowledge base. Always answer with a single valid JSON object.`

const promptTemplate = `Act as a senior product analyst. Study the project material below and extract as much useful information as possible into a complete, detailed project knowledge base.

{{CONTEXT}}

Return the knowledge base as one JSON object with exactly these top-level keys. Fill every section as fully as the material allows.

{
  "project_overview": {
    "product_name": "product name",
    "product_type": "web app / mobile app / mini program / ...",
    "description": "detailed product description (100-300 words)",
    "target_users": "target user groups",
    "core_value": "core value proposition"
  },
  "feature_modules": [
    {
      "module_name": "unique module name",
      "description": "what the module covers",
      "priority": "high/medium/low",
      "features": [
        {"name": "feature name", "description": "feature description", "key_points": ["acceptance criterion"]}
      ]
    }
  ],
  "tech_architecture": {
    "architecture_pattern": "MVC / microservices / ...",
    "tech_stack": {"frontend": ["..."], "backend": ["..."], "database": ["..."]},
    "patterns": ["technical pattern"],
    "conventions": {"naming": ["camelCase"], "api": ["RESTful"]}
  },
  "ui_ux_standards": {
    "primary_colors": ["#hex"],
    "component_library": "component library",
    "layout_features": ["layout trait"],
    "common_components": ["component"],
    "interaction_patterns": ["interaction pattern"]
  },
  "data_model": {
    "entities": [
      {
        "name": "entity",
        "description": "entity description",
        "fields": [{"name": "field", "type": "type", "required": true, "description": "meaning"}]
      }
    ]
  },
  "pending_questions": [
    {
      "category": "feature/tech/ui/business",
      "question": "specific open question",
      "context": "why it is unclear",
      "suggested_answer": "suggested answer",
      "priority": "high/medium/low"
    }
  ],
  "raw_insights": ["notable observation that fits nowhere else"]
}

Important:
1. Do not leave fields empty; mine the material for everything it implies.
2. Where something is uncertain, infer it from industry practice and add a pending question.
3. feature_modules is the most important section; module names must be unique.
4. List every data_model entity and field you can identify.
5. Return valid JSON only, without markdown fences.`

// RenderPrompt places the assembled context into the synthesis prompt.
func RenderPrompt(context string) string {
	return strings.Replace(promptTemplate, "{{CONTEXT}}", context, 1)
}
