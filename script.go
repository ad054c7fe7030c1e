package glimpse

import (
	"fmt"
	"strings"
)

// GenerateScriptTags renders the markup that points the browser at the
// diagnostics resource endpoint. Host integrations may call it from more
// than one injection point, but it produces output at most once per request:
// after the first call it returns "". The output is always empty for
// unavailable handles, resource-mode handles and requests whose policy no
// longer permits client display; those calls do not consume the
// once-per-request flag.
func (r *Runtime) GenerateScriptTags(h Handle) string {
	if !h.Available() || h.Mode() != RegularRequest {
		return ""
	}
	rc, ok := r.registry.TryGet(h.ID())
	if !ok {
		return ""
	}
	return r.generateScriptTags(rc)
}

func (r *Runtime) generateScriptTags(rc *RequestContext) string {
	if rc.Policy().IsOff() || !rc.Policy().Has(PolicyDisplayClient) {
		return ""
	}
	if !rc.claimScriptInjection() {
		return ""
	}

	encode := r.cfg.HTMLEncoder.Encode
	src := fmt.Sprintf("%s%s?n=%s&id=%s&version=%s",
		r.cfg.BaseURI,
		r.cfg.EndpointPath,
		r.cfg.DefaultResourceName,
		rc.ID().String(),
		r.cfg.Version,
	)

	var b strings.Builder
	b.WriteString(`<script type="text/javascript" src="`)
	b.WriteString(encode(src))
	b.WriteString(`"></script>`)
	return b.String()
}
