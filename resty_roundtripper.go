package qcgraph

import (
	"net/http"

	"github.com/go-resty/resty/v2"
)

// RestyRoundTripper lets plain http clients, like the long poll client, reuse the
// authenticated resty client.
type RestyRoundTripper struct {
	restyClient *resty.Client
}

func (r *RestyRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	restyReq := r.restyClient.R().
		SetContext(req.Context()).
		SetDoNotParseResponse(true)

	for k, values := range req.Header {
		for _, v := range values {
			restyReq.Header.Add(k, v)
		}
	}

	restyReq.Method = req.Method
	restyReq.URL = req.URL.String()

	resp, err := restyReq.Send()
	if err != nil {
		return nil, err
	}

	return &http.Response{
		Status:     resp.Status(),
		StatusCode: resp.StatusCode(),
		Header:     resp.Header(),
		Body:       resp.RawBody(),
		Request:    req,
	}, nil
}
