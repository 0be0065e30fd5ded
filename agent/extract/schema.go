package extract

const deviceSchema = `{
  "type": "object",
  "properties": {
    "brand":        {"type": ["string", "null"]},
    "model":        {"type": ["string", "null"]},
    "storage":      {"type": ["string", "number", "null"]},
    "has_5g":       {"type": ["boolean", "null"]},
    "release_date": {"type": ["string", "null"]}
  }
}`

const buyingSchema = `{
  "type": "object",
  "properties": {
    "budget":           {"type": ["number", "null"], "minimum": 0},
    "budge":            {"type": ["number", "null"], "minimum": 0},
    "brand_preference": {"type": ["string", "null"]},
    "min_storage":      {"type": ["number", "string", "null"]},
    "grade_preference": {"type": ["string", "null"]}
  }
}`
