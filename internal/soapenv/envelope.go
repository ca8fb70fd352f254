// Package soapenv builds and parses the SOAP 1.1 envelopes the provider's
// legacy Service.asmx endpoint speaks. The token rides in a custom header
// element; faults are detected both on the raw text and the parsed
// structure, because malformed fault bodies may not survive XML decoding.
package soapenv

import (
	"encoding/xml"
	"fmt"
)

// Envelope is a SOAP 1.1 request envelope.
type Envelope struct {
	XMLName xml.Name `xml:"http://schemas.xmlsoap.org/soap/envelope/ Envelope"`

	Header *Header
	Body   Body
}

// Header is a SOAP envelope header.
type Header struct {
	XMLName xml.Name `xml:"http://schemas.xmlsoap.org/soap/envelope/ Header"`

	Token *AccessToken
}

// AccessToken is the provider's custom header element carrying the OAuth
// token on SOAP calls.
type AccessToken struct {
	XMLName xml.Name `xml:"http://exacttarget.com fueloauth"`
	Value   string   `xml:",chardata"`
}

// Body is a SOAP envelope body. Content holds the operation request on the
// way out; Fault and Content are populated when parsing responses.
type Body struct {
	XMLName xml.Name `xml:"http://schemas.xmlsoap.org/soap/envelope/ Body"`

	Fault   *Fault `xml:",omitempty"`
	Content any    `xml:",omitempty"`
}

// New wraps content in an envelope carrying token in the provider's custom
// auth header.
func New(token string, content any) *Envelope {
	return &Envelope{
		Header: &Header{Token: &AccessToken{Value: token}},
		Body:   Body{Content: content},
	}
}

// Marshal serializes the envelope with the standard XML declaration.
func (e *Envelope) Marshal() ([]byte, error) {
	data, err := xml.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshaling envelope: %w", err)
	}
	return append([]byte(xml.Header), data...), nil
}

// responseEnvelope mirrors Envelope for decoding: the body content is
// decoded into a caller-supplied struct, and a fault is captured when the
// provider returned one instead.
type responseEnvelope struct {
	XMLName xml.Name     `xml:"Envelope"`
	Body    responseBody `xml:"Body"`
}

type responseBody struct {
	Fault   *Fault `xml:"Fault"`
	Content any    `xml:",any"`
}

// UnmarshalXML decodes the body's child elements, routing a Fault into the
// fault field and everything else into the content struct.
func (b *responseBody) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for {
		token, err := d.Token()
		if err != nil {
			return err
		}
		switch se := token.(type) {
		case xml.StartElement:
			if se.Name.Local == "Fault" {
				var fault Fault
				if err := d.DecodeElement(&fault, &se); err != nil {
					return err
				}
				b.Fault = &fault
				continue
			}
			if b.Content == nil {
				if err := d.Skip(); err != nil {
					return err
				}
				continue
			}
			if err := d.DecodeElement(b.Content, &se); err != nil {
				return err
			}
		case xml.EndElement:
			return nil
		}
	}
}

// Unmarshal parses a SOAP response. The body content is decoded into
// content (which may be nil when only fault inspection is needed); the
// returned fault is non-nil when the provider answered with one.
func Unmarshal(raw []byte, content any) (*Fault, error) {
	env := responseEnvelope{Body: responseBody{Content: content}}
	if err := xml.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("unmarshaling envelope: %w", err)
	}
	return env.Body.Fault, nil
}
