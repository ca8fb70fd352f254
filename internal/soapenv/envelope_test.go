package soapenv

import (
	"encoding/xml"
	"strings"
	"testing"
)

type retrieveRequest struct {
	XMLName    xml.Name `xml:"http://exacttarget.com/wsdl/partnerAPI RetrieveRequestMsg"`
	ObjectType string   `xml:"RetrieveRequest>ObjectType"`
}

type retrieveResponse struct {
	XMLName       xml.Name `xml:"RetrieveResponseMsg"`
	OverallStatus string   `xml:"OverallStatus"`
	RequestID     string   `xml:"RequestID"`
}

func TestMarshalEmbedsTokenHeader(t *testing.T) {
	env := New("secret-token", retrieveRequest{ObjectType: "DataExtension"})
	data, err := env.Marshal()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := string(data)

	if !strings.HasPrefix(out, xml.Header) {
		t.Fatalf("missing XML declaration: %s", out[:40])
	}
	for _, want := range []string{
		"fueloauth", "secret-token",
		"http://exacttarget.com",
		"http://schemas.xmlsoap.org/soap/envelope/",
		"RetrieveRequestMsg", "DataExtension",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("envelope missing %q:\n%s", want, out)
		}
	}
}

func TestMarshalRoundTrips(t *testing.T) {
	env := New("tok", retrieveRequest{ObjectType: "DataExtension"})
	data, err := env.Marshal()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	// The envelope we produce must parse with our own response parser.
	var out retrieveRequest
	fault, err := Unmarshal(data, &out)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if fault != nil {
		t.Fatalf("unexpected fault: %v", fault)
	}
	if out.ObjectType != "DataExtension" {
		t.Fatalf("content did not round trip: %+v", out)
	}
}

func TestUnmarshalDecodesContent(t *testing.T) {
	const raw = `<?xml version="1.0" encoding="utf-8"?>
<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">
  <soap:Header/>
  <soap:Body>
    <RetrieveResponseMsg xmlns="http://exacttarget.com/wsdl/partnerAPI">
      <OverallStatus>MoreDataAvailable</OverallStatus>
      <RequestID>cont-42</RequestID>
    </RetrieveResponseMsg>
  </soap:Body>
</soap:Envelope>`

	var out retrieveResponse
	fault, err := Unmarshal([]byte(raw), &out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fault != nil {
		t.Fatalf("unexpected fault: %v", fault)
	}
	if out.OverallStatus != "MoreDataAvailable" || out.RequestID != "cont-42" {
		t.Fatalf("unexpected decode: %+v", out)
	}
}

func TestUnmarshalCapturesFault(t *testing.T) {
	const raw = `<?xml version="1.0" encoding="utf-8"?>
<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">
  <soap:Body>
    <soap:Fault>
      <faultcode>soap:Client</faultcode>
      <faultstring>Invalid request</faultstring>
    </soap:Fault>
  </soap:Body>
</soap:Envelope>`

	fault, err := Unmarshal([]byte(raw), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fault == nil {
		t.Fatalf("expected fault")
	}
	if fault.String != "Invalid request" || !strings.Contains(fault.Code, "Client") {
		t.Fatalf("unexpected fault: %+v", fault)
	}
}

func TestUnmarshalSkipsUnknownContentWhenNilTarget(t *testing.T) {
	const raw = `<?xml version="1.0" encoding="utf-8"?>
<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">
  <soap:Body>
    <SomethingElse><Nested>1</Nested></SomethingElse>
  </soap:Body>
</soap:Envelope>`

	fault, err := Unmarshal([]byte(raw), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fault != nil {
		t.Fatalf("unexpected fault: %v", fault)
	}
}

func TestUnmarshalRejectsGarbage(t *testing.T) {
	if _, err := Unmarshal([]byte("<Envelope><Body>"), nil); err == nil {
		t.Fatalf("expected error for truncated XML")
	}
}
