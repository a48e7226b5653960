package config

import (
	"reflect"
	"strings"
)

// GetSettingsExample uses reflection to generate example settings
// This automatically stays in sync when new fields are added to Settings
func GetSettingsExample() map[string]any {
	var s Settings
	t := reflect.TypeOf(s)
	example := make(map[string]any)

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		jsonTag := field.Tag.Get("json")
		if jsonTag == "" {
			continue
		}

		// Extract the JSON field name (before comma)
		jsonName := strings.Split(jsonTag, ",")[0]

		example[jsonName] = generateExampleValue(field.Type, jsonName)
	}

	return example
}

// generateExampleValue creates appropriate example values based on type and field name
func generateExampleValue(t reflect.Type, fieldName string) any {
	if t.Name() == "KeyBindingsConfig" {
		return map[string]any{
			"abort":    "ctrl+c",
			"provider": []string{"ctrl+p", "f2"},
		}
	}

	if t.Kind() == reflect.Ptr {
		switch t.Elem().Kind() {
		case reflect.Bool:
			return fieldName == "debug" || fieldName == "sound"
		case reflect.Int:
			if fieldName == "max_log_files" {
				return 1000
			}
			if fieldName == "ssh_port" {
				return DefaultSSHPort
			}
			return 10
		}
	}

	switch t.Kind() {
	case reflect.String:
		switch fieldName {
		case "auth_token":
			return "<token from the agent server>"
		case "project_name":
			return "my-project"
		case "project_path":
			return "~/src/my-project"
		case "provider":
			return "claude"
		case "server_url":
			return DefaultServerURL
		case "ssh_authorized_keys":
			return "~/.ssh/authorized_keys"
		case "ssh_host":
			return DefaultSSHHost
		default:
			return "example"
		}
	case reflect.Map:
		if fieldName == "models" {
			return map[string]string{"claude": "sonnet", "codex": "gpt-5", "cursor": "gpt-5"}
		}
		return map[string]string{}
	case reflect.Slice:
		if fieldName == "providers" {
			return []string{"claude", "codex", "cursor"}
		}
		return []string{"example1", "example2"}
	}

	return nil
}
