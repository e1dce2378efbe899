package erp

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/dukaforge/stocklink/pkg/types"
)

// fragmentArgs are wire arguments whose values are prebuilt XML fragments
// and must be embedded without re-escaping.
var fragmentArgs = map[string]bool{
	"Filters":     true,
	"options":     true,
	argSchemaBody: true,
}

// HTTPTransport is the native transport: one POST per call carrying an XML
// request envelope, answered by a payload or a structured fault.
type HTTPTransport struct {
	cfg    types.ConnectionConfig
	client *http.Client
}

// NewHTTPTransport builds the native transport for the given configuration,
// honoring the optional proxy.
func NewHTTPTransport(cfg types.ConnectionConfig) (*HTTPTransport, error) {
	inner := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.Proxy != "" {
		proxyURL, err := url.Parse(cfg.Proxy)
		if err != nil {
			return nil, fmt.Errorf("parse proxy URL: %w", err)
		}
		inner.Proxy = http.ProxyURL(proxyURL)
	}
	return &HTTPTransport{
		cfg:    cfg,
		client: &http.Client{Transport: inner},
	}, nil
}

// Execute implements Transport.
func (t *HTTPTransport) Execute(ctx context.Context, operation string, args []WireArg, kind ConnectorKind) ([]byte, error) {
	body := buildEnvelope(t.cfg, operation, args)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.cfg.BaseURL, strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("X-Operation", operation)
	req.SetBasicAuth(t.cfg.Domain+`\`+t.cfg.User, t.cfg.Password)

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	return readResponse(resp)
}

// buildEnvelope renders the request envelope. Fragment arguments (filters,
// options, schema bodies) embed as-is; scalar arguments are escaped.
func buildEnvelope(cfg types.ConnectionConfig, operation string, args []WireArg) string {
	var b strings.Builder
	b.WriteString(`<Request>`)
	fmt.Fprintf(&b, `<Header><Environment>%s</Environment><Domain>%s</Domain></Header>`,
		escapeXML(cfg.Environment), escapeXML(cfg.Domain))
	fmt.Fprintf(&b, `<Body><%s>`, operation)
	for _, a := range args {
		if fragmentArgs[a.Name] {
			b.WriteString(a.Value)
			continue
		}
		fmt.Fprintf(&b, `<%s>%s</%s>`, a.Name, escapeXML(a.Value), a.Name)
	}
	fmt.Fprintf(&b, `</%s></Body></Request>`, operation)
	return b.String()
}

// readResponse shapes an HTTP response into a payload or an error matching
// the classification taxonomy: status and content-type problems surface as
// transport-layer failures, a Fault element as a wire fault.
func readResponse(resp *http.Response) ([]byte, error) {
	if resp.StatusCode == http.StatusForbidden {
		return nil, fmt.Errorf("unexpected HTTP 403 Forbidden from %s", resp.Request.URL.Host)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected HTTP status %s", resp.Status)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.Contains(ct, "xml") {
		return nil, fmt.Errorf("content type of the response is not text/xml: %s", ct)
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if fault := parseFault(payload); fault != nil {
		return nil, fault
	}
	return payload, nil
}

// parseFault returns the structured fault carried by a payload, or nil.
func parseFault(payload []byte) *Fault {
	if !bytes.Contains(payload, []byte("<Fault")) {
		return nil
	}
	var doc struct {
		XMLName xml.Name
		Message string `xml:"Message"`
		Detail  string `xml:"Detail"`
	}
	trimmed := bytes.TrimSpace(payload)
	if err := xml.Unmarshal(trimmed, &doc); err != nil || doc.XMLName.Local != "Fault" {
		// A Fault element nested below the root.
		var wrapped struct {
			Fault *struct {
				Message string `xml:"Message"`
				Detail  string `xml:"Detail"`
			} `xml:"Fault"`
		}
		if err := xml.Unmarshal(trimmed, &wrapped); err != nil || wrapped.Fault == nil {
			return nil
		}
		return &Fault{Message: wrapped.Fault.Message, Detail: wrapped.Fault.Detail}
	}
	return &Fault{Message: doc.Message, Detail: doc.Detail}
}
