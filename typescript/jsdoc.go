package typescript

import (
	"fmt"
	"strings"

	"github.com/broady/fluidgen/ir"
)

// wrapJSDoc renders parts as a JSDoc block. An empty part becomes a bare
// " *" separator; multi-line parts are split.
func wrapJSDoc(parts []string) string {
	if len(parts) == 0 {
		return ""
	}
	lines := []string{"/**"}
	for _, part := range parts {
		for _, l := range strings.Split(part, "\n") {
			if strings.TrimSpace(l) == "" {
				lines = append(lines, " *")
				continue
			}
			lines = append(lines, " * "+l)
		}
	}
	lines = append(lines, " */")
	return strings.Join(lines, "\n")
}

func paramDocs(params []ir.Field) []string {
	out := make([]string, 0, len(params))
	for _, p := range params {
		line := "@param " + identifier(p.Name)
		if p.Description != "" {
			line += " - " + p.Description
		}
		out = append(out, line)
	}
	return out
}

// securityDocs renders the route's security requirements.
func securityDocs(route *ir.RouteNode) []string {
	if len(route.Security) == 0 {
		return nil
	}
	lines := []string{"**Security Requirements:**"}
	for _, req := range route.Security {
		var line string
		switch req.SchemeType {
		case "oauth2":
			line = "- OAuth2: " + req.SchemeName
			if len(req.Scopes) > 0 {
				line += fmt.Sprintf(" (scopes: %s)", strings.Join(req.Scopes, ", "))
			}
		case "apiKey":
			in := req.Location
			if in == "" {
				in = "header"
			}
			name := req.ParameterName
			if name == "" {
				name = req.SchemeName
			}
			line = fmt.Sprintf("- API Key: %s in %s", name, in)
		case "http":
			line = "- HTTP: " + req.SchemeName
		case "openIdConnect":
			line = "- OpenID Connect: " + req.SchemeName
		default:
			line = "- " + req.SchemeName
		}
		if req.Description != "" {
			line += " - " + req.Description
		}
		lines = append(lines, line)
	}
	return lines
}

// documentedOnly lists header and cookie parameters. The client does not
// send them, but callers have to supply them some other way.
func documentedOnly(route *ir.RouteNode) []string {
	var out []string
	for _, p := range route.DocumentedParameters() {
		if p.Constraints.ParameterType == ir.ParamSecurity {
			continue
		}
		if out == nil {
			out = []string{"**Additional Parameters:**"}
		}
		line := fmt.Sprintf("- %s (%s)", p.Name, p.Constraints.ParameterType)
		if p.Description != "" {
			line += " - " + p.Description
		}
		out = append(out, line)
	}
	return out
}
