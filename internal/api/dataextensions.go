package api

import (
	"context"
	"encoding/xml"

	"github.com/queryforge/queryforge-cli/internal/bridge"
	"github.com/queryforge/queryforge-cli/internal/resolve"
	"github.com/queryforge/queryforge-cli/internal/validation"
)

// DataExtensionsService retrieves data extension metadata over SOAP.
type DataExtensionsService struct {
	c *Client
}

// DataExtension is the metadata subset the CLI surfaces.
type DataExtension struct {
	Name        string
	CustomerKey string
	IsSendable  bool
	CategoryID  int64
}

// DataExtensionField describes one column of a data extension.
type DataExtensionField struct {
	Name         string
	FieldType    string
	MaxLength    int
	IsPrimaryKey bool
	IsRequired   bool
}

// retrieveRequestMsg is the partnerAPI Retrieve call. A non-empty
// ContinueRequest resumes a prior retrieve instead of starting a new one.
type retrieveRequestMsg struct {
	XMLName         xml.Name        `xml:"http://exacttarget.com/wsdl/partnerAPI RetrieveRequestMsg"`
	RetrieveRequest retrieveRequest `xml:"RetrieveRequest"`
}

type retrieveRequest struct {
	ContinueRequest string            `xml:"ContinueRequest,omitempty"`
	ObjectType      string            `xml:"ObjectType"`
	Properties      []string          `xml:"Properties"`
	Filter          *simpleFilterPart `xml:"Filter,omitempty"`
}

type simpleFilterPart struct {
	XsiType        string `xml:"http://www.w3.org/2001/XMLSchema-instance type,attr"`
	Property       string `xml:"Property"`
	SimpleOperator string `xml:"SimpleOperator"`
	Value          string `xml:"Value"`
}

func equalsFilter(property, value string) *simpleFilterPart {
	return &simpleFilterPart{
		XsiType:        "SimpleFilterPart",
		Property:       property,
		SimpleOperator: "equals",
		Value:          value,
	}
}

type retrieveResponseMsg struct {
	XMLName       xml.Name         `xml:"http://exacttarget.com/wsdl/partnerAPI RetrieveResponseMsg"`
	OverallStatus string           `xml:"OverallStatus"`
	RequestID     string           `xml:"RequestID"`
	Results       []retrieveResult `xml:"Results"`
}

// retrieveResult is a union of the properties retrieved for the object
// types this service asks for. Absent elements stay zero.
type retrieveResult struct {
	Name         string `xml:"Name"`
	CustomerKey  string `xml:"CustomerKey"`
	IsSendable   bool   `xml:"IsSendable"`
	CategoryID   int64  `xml:"CategoryID"`
	FieldType    string `xml:"FieldType"`
	MaxLength    int    `xml:"MaxLength"`
	IsPrimaryKey bool   `xml:"IsPrimaryKey"`
	IsRequired   bool   `xml:"IsRequired"`
}

const soapActionRetrieve = "Retrieve"

// retrieveAll runs a paginated Retrieve and returns every result row.
func (s DataExtensionsService) retrieveAll(ctx context.Context, objectType string, properties []string, filter *simpleFilterPart) ([]retrieveResult, error) {
	var all []retrieveResult

	err := bridge.Paginate(ctx, "soap retrieve "+objectType, func(ctx context.Context, cursor string) (bridge.Page, error) {
		req := retrieveRequestMsg{
			RetrieveRequest: retrieveRequest{
				ContinueRequest: cursor,
				ObjectType:      objectType,
				Properties:      properties,
				Filter:          filter,
			},
		}
		if cursor != "" {
			// Continuation requests carry only the cursor and object type.
			req.RetrieveRequest.Filter = nil
		}

		// The SOAP dispatcher never retries transport failures itself, so
		// each page request runs under the transient retry policy here.
		var resp retrieveResponseMsg
		res, err := bridge.Retry(ctx, s.c.retry, "soap retrieve "+objectType, func() (*bridge.SOAPResult, error) {
			resp = retrieveResponseMsg{}
			return s.c.soap.RequestTimeout(ctx, s.c.identity, soapActionRetrieve, req, &resp, bridge.TimeoutDataRetrieval)
		})
		if err != nil {
			return bridge.Page{}, err
		}
		if res.Fault != nil {
			return bridge.Page{}, &bridge.Error{
				Class:         bridge.ClassSOAPOperationFailure,
				Operation:     "soap retrieve " + objectType,
				StatusMessage: res.Fault.Error(),
				Err:           res.Fault,
			}
		}

		all = append(all, resp.Results...)
		return bridge.Page{
			Status:        resp.OverallStatus,
			StatusMessage: resp.OverallStatus,
			Cursor:        resp.RequestID,
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return all, nil
}

// List retrieves all data extensions visible to the business unit.
func (s DataExtensionsService) List(ctx context.Context) ([]DataExtension, error) {
	results, err := s.retrieveAll(ctx, "DataExtension",
		[]string{"Name", "CustomerKey", "IsSendable", "CategoryID"}, nil)
	if err != nil {
		return nil, err
	}

	des := make([]DataExtension, len(results))
	for i, r := range results {
		des[i] = DataExtension{
			Name:        r.Name,
			CustomerKey: r.CustomerKey,
			IsSendable:  r.IsSendable,
			CategoryID:  r.CategoryID,
		}
	}
	return des, nil
}

// Fields retrieves the columns of a data extension by external key.
func (s DataExtensionsService) Fields(ctx context.Context, externalKey string) ([]DataExtensionField, error) {
	if err := validation.ValidateExternalKey(externalKey); err != nil {
		return nil, err
	}
	results, err := s.retrieveAll(ctx, "DataExtensionField",
		[]string{"Name", "FieldType", "MaxLength", "IsPrimaryKey", "IsRequired"},
		equalsFilter("DataExtension.CustomerKey", externalKey))
	if err != nil {
		return nil, err
	}

	fields := make([]DataExtensionField, len(results))
	for i, r := range results {
		fields[i] = DataExtensionField{
			Name:         r.Name,
			FieldType:    r.FieldType,
			MaxLength:    r.MaxLength,
			IsPrimaryKey: r.IsPrimaryKey,
			IsRequired:   r.IsRequired,
		}
	}
	return fields, nil
}

// ResolveKey resolves a name or external key to a data extension external
// key, fetching the tenant's data extensions and fuzzy-matching by name.
// The listing is cached when the client has a cache directory, since
// interactive sessions resolve names repeatedly against slow SOAP
// retrieves.
func (s DataExtensionsService) ResolveKey(ctx context.Context, nameOrKey string) (string, error) {
	des, err := s.listCached(ctx)
	if err != nil {
		return "", err
	}
	named := make([]resolve.Named, len(des))
	for i, de := range des {
		named[i] = resolve.Named{Key: de.CustomerKey, Name: de.Name}
	}
	return resolve.FuzzyMatch(nameOrKey, named)
}

func (s DataExtensionsService) listCached(ctx context.Context) ([]DataExtension, error) {
	if s.c.deCache != nil {
		var cached []DataExtension
		if s.c.deCache.Get(&cached) {
			return cached, nil
		}
	}
	des, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	if s.c.deCache != nil {
		s.c.deCache.Put(des)
	}
	return des, nil
}
