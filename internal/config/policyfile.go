package config

import (
	"bytes"
	"fmt"
	"os"

	"github.com/benvon/corsgate/internal/cors"
	"github.com/benvon/corsgate/internal/validation"
	"gopkg.in/yaml.v3"
)

// policyFile is the YAML document read from POLICY_FILE:
//
//	cors:
//	  allowed_origins: ["https://app.example.com"]
//	  allowed_methods: "GET, POST"
//	  allow_credentials: true
//	  max_age: 600
type policyFile struct {
	CORS cors.Options `yaml:"cors"`
}

// LoadPolicyFile reads and validates a YAML policy file.
func LoadPolicyFile(path string) (*cors.Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy file: %w", err)
	}
	return ParsePolicy(data)
}

// ParsePolicy decodes a YAML policy document. Unknown keys are rejected.
func ParsePolicy(data []byte) (*cors.Options, error) {
	var doc policyFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode policy file: %w", err)
	}
	if err := validation.Struct(doc.CORS); err != nil {
		return nil, fmt.Errorf("invalid policy file: %w", err)
	}
	return &doc.CORS, nil
}
