package scai

import (
	_ "embed"
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed statement.schema.json
var statementSchema string

// Validate checks a statement against the embedded schema plus the SCAI
// rules the schema cannot express. It returns one message per problem.
func Validate(statement *Statement) []string {
	var errs []string

	schemaLoader := gojsonschema.NewStringLoader(statementSchema)
	documentLoader := gojsonschema.NewGoLoader(statement)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return []string{fmt.Sprintf("schema validation failed: %s", err)}
	}
	for _, resultError := range result.Errors() {
		errs = append(errs, resultError.String())
	}

	if statement.Type != StatementType {
		errs = append(errs, fmt.Sprintf("invalid _type: expected %s", StatementType))
	}
	if statement.PredicateType != PredicateType {
		errs = append(errs, fmt.Sprintf("invalid predicateType: expected %s", PredicateType))
	}

	for i, subject := range statement.Subject {
		if subject.Name == "" {
			errs = append(errs, fmt.Sprintf("subject %d: missing name", i))
		}
		if len(subject.Digest) == 0 {
			errs = append(errs, fmt.Sprintf("subject %d: missing digest", i))
		}
	}

	for i, attr := range statement.Predicate.Attributes {
		if attr.Attribute == "" {
			errs = append(errs, fmt.Sprintf("attribute %d: missing attribute field", i))
		}
		// evidence needs at least a name, uri or digest per the SCAI spec
		if attr.Evidence.Name == "" && attr.Evidence.URI == "" && len(attr.Evidence.Digest) == 0 {
			errs = append(errs, fmt.Sprintf("attribute %d: evidence must have name, uri, or digest", i))
		}
	}

	return errs
}
