package tone

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/Strob0t/ReplyForge/internal/domain"
)

// SettingsSchema is the JSON schema accepted for tone-profile settings.
const SettingsSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "formality":   {"type": "string", "enum": ["low", "medium", "high"]},
    "warmth":      {"type": "string", "enum": ["low", "medium", "high"]},
    "emotion":     {"type": "string", "maxLength": 64},
    "length":      {"type": "string", "enum": ["short", "medium", "long"]},
    "personality": {"type": "string", "maxLength": 500},
    "signoff":     {"type": "string", "maxLength": 200}
  }
}`

var settingsSchema = mustSchema(SettingsSchema)

func mustSchema(src string) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("tone: settings schema: %v", err))
	}
	return s
}

// ParseSettings validates raw JSON against SettingsSchema and decodes it.
// Schema failures wrap domain.ErrValidation and list every offending field.
func ParseSettings(raw []byte) (Settings, error) {
	res, err := settingsSchema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return Settings{}, fmt.Errorf("settings are not valid JSON: %w", domain.ErrValidation)
	}
	if !res.Valid() {
		msgs := make([]string, 0, len(res.Errors()))
		for _, e := range res.Errors() {
			msgs = append(msgs, e.String())
		}
		return Settings{}, fmt.Errorf("invalid settings: %s: %w", strings.Join(msgs, "; "), domain.ErrValidation)
	}

	var s Settings
	if err := json.Unmarshal(raw, &s); err != nil {
		return Settings{}, fmt.Errorf("decode settings: %w", err)
	}
	return s, nil
}
