package bom

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	cdx "github.com/CycloneDX/cyclonedx-go"
	jss "github.com/kaptinlin/jsonschema"
)

var ErrInvalidBOM = errors.New("BOM validation failed")

//go:embed schemas/*.json
var schemaFS embed.FS

var versionToPath = map[cdx.SpecVersion]string{
	cdx.SpecVersion1_6: "schemas/inventory-1.6.schema.json",
}

// Validator checks an inventory BOM against the embedded schema of the
// CycloneDX subset blastweb writes
type Validator struct {
	schemas map[cdx.SpecVersion]*jss.Schema
}

func NewValidator(versions ...cdx.SpecVersion) (Validator, error) {
	var zero Validator
	schemas := make(map[cdx.SpecVersion]*jss.Schema, 1)
	for _, ver := range versions {
		path, ok := versionToPath[ver]
		if !ok {
			return zero, fmt.Errorf("unknown schema version: %s", ver)
		}
		b, err := schemaFS.ReadFile(path)
		if err != nil {
			return zero, fmt.Errorf("reading embedded schema: %w", err)
		}
		compiler := jss.NewCompiler()
		schema, err := compiler.Compile(b)
		if err != nil {
			return zero, fmt.Errorf("compiling schema: %w", err)
		}
		schemas[ver] = schema
	}
	return Validator{
		schemas: schemas,
	}, nil
}

func (v Validator) ValidateBytes(ctx context.Context, b []byte) error {
	var bom struct {
		SpecVersion cdx.SpecVersion `json:"specVersion"`
	}
	err := json.Unmarshal(b, &bom)
	if err != nil {
		return fmt.Errorf("reading spec version: %w", err)
	}

	schema, err := v.versionToSchema(bom.SpecVersion)
	if err != nil {
		return err
	}
	return v.validateBytes(ctx, schema, b)
}

func (v Validator) versionToSchema(version cdx.SpecVersion) (*jss.Schema, error) {
	schema, ok := v.schemas[version]
	if !ok {
		supported := make([]string, 0, len(v.schemas))
		for k := range v.schemas {
			supported = append(supported, k.String())
		}
		return nil, fmt.Errorf("unsupported BOM specification version: supported %s: got: %s",
			strings.Join(supported, ","),
			version,
		)
	}
	return schema, nil
}

func (v Validator) validateBytes(ctx context.Context, schema *jss.Schema, b []byte) error {
	res := schema.Validate(b)
	if !res.Valid {
		var errorMsgs []string
		for _, err := range res.Errors {
			errorMsgs = append(errorMsgs, fmt.Sprintf("%s: %s", err.Keyword, err.Error()))
		}
		return fmt.Errorf("%w:\n%s", ErrInvalidBOM, strings.Join(errorMsgs, "\n"))
	}
	return nil
}
