package profile

import (
	"fmt"
	"regexp"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/devskill-org/solarstatus/errs"
)

// MaxDocumentBytes is the size cap spec.md §4.1 places on a profile
// YAML document (256 KiB), a memory-exhaustion guard applied before
// parsing begins.
const MaxDocumentBytes = 262144

var lineErrorPattern = regexp.MustCompile(`^(?:yaml: )?line (\d+): (.*)$`)

// Parse validates and decodes a UTF-8 YAML device-definition document
// into an InverterDefinition. id is used only for error reporting.
func Parse(data []byte, id string) (*InverterDefinition, error) {
	if len(data) > MaxDocumentBytes {
		return nil, errs.ProfileLoadFailed(id, fmt.Sprintf("document exceeds %d byte limit (%d bytes)", MaxDocumentBytes, len(data)))
	}

	var doc yamlDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		line, reason := splitYAMLError(err)
		return nil, errs.ProfileParseError(id, line, reason)
	}

	def, err := doc.toDefinition()
	if err != nil {
		return nil, errs.ProfileParseError(id, nil, err.Error())
	}

	return def, nil
}

// splitYAMLError extracts a best-effort line number from a yaml.v3
// decode error, falling back to no line when the error carries none.
func splitYAMLError(err error) (*int, string) {
	if te, ok := err.(*yaml.TypeError); ok && len(te.Errors) > 0 {
		if m := lineErrorPattern.FindStringSubmatch(te.Errors[0]); m != nil {
			if n, perr := strconv.Atoi(m[1]); perr == nil {
				return &n, m[2]
			}
		}
		return nil, te.Errors[0]
	}
	if m := lineErrorPattern.FindStringSubmatch(err.Error()); m != nil {
		if n, perr := strconv.Atoi(m[1]); perr == nil {
			return &n, m[2]
		}
	}
	return nil, err.Error()
}
