//go:generate go run ../../build/gen-config-schema.go ../../mirrorsync.schema.json

package config

import (
	"bytes"
	"encoding/json"

	"github.com/santhosh-tekuri/jsonschema/v6"
	schemareflector "github.com/swaggest/jsonschema-go"
)

var configSchema *jsonschema.Schema

func init() {
	bs, err := ReflectSchema()
	if err != nil {
		panic(err)
	}

	js, err := jsonschema.UnmarshalJSON(bytes.NewReader(bs))
	if err != nil {
		panic(err)
	}
	compiler := jsonschema.NewCompiler()
	compiler.DefaultDraft(jsonschema.Draft2020)
	if err := compiler.AddResource("schema.json", js); err != nil {
		panic(err)
	}

	configSchema, err = compiler.Compile("schema.json")
	if err != nil {
		panic(err)
	}
}

// ReflectSchema returns the JSON schema of the config file.
func ReflectSchema() ([]byte, error) {
	reflector := schemareflector.Reflector{}

	s, err := reflector.Reflect(Config{})
	if err != nil {
		return nil, err
	}

	return json.MarshalIndent(s, "", "  ")
}

func (Duration) PrepareJSONSchema(schema *schemareflector.Schema) error {
	schema.Type = nil
	schema.AddType(schemareflector.String)
	return nil
}
