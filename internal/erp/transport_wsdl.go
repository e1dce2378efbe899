package erp

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/Azure/go-ntlmssp"

	"github.com/dukaforge/stocklink/pkg/types"
)

const soapEnvelopeOpen = `<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/"><soap:Body>`
const soapEnvelopeClose = `</soap:Body></soap:Envelope>`

// WSDLTransport is the library-based transport variant: the same envelope
// wrapped in a SOAP body, authenticated with NTLM negotiated per request.
// Interchangeable with HTTPTransport behind the Transport contract.
type WSDLTransport struct {
	cfg    types.ConnectionConfig
	client *http.Client
}

// NewWSDLTransport builds the WSDL transport with an NTLM negotiator.
func NewWSDLTransport(cfg types.ConnectionConfig) (*WSDLTransport, error) {
	inner := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.Proxy != "" {
		proxyURL, err := url.Parse(cfg.Proxy)
		if err != nil {
			return nil, fmt.Errorf("parse proxy URL: %w", err)
		}
		inner.Proxy = http.ProxyURL(proxyURL)
	}
	return &WSDLTransport{
		cfg: cfg,
		client: &http.Client{
			Transport: ntlmssp.Negotiator{RoundTripper: inner},
		},
	}, nil
}

// Execute implements Transport.
func (t *WSDLTransport) Execute(ctx context.Context, operation string, args []WireArg, kind ConnectorKind) ([]byte, error) {
	var b strings.Builder
	b.WriteString(soapEnvelopeOpen)
	b.WriteString(buildEnvelope(t.cfg, operation, args))
	b.WriteString(soapEnvelopeClose)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.cfg.BaseURL, strings.NewReader(b.String()))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", operation)
	req.SetBasicAuth(t.cfg.Domain+`\`+t.cfg.User, t.cfg.Password)

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	return readResponse(resp)
}
