package httpclient

import (
	"context"
	"time"

	"agri-market/pkg/logger"

	"github.com/go-resty/resty/v2"
)

type RestyClient struct {
	client *resty.Client
}

func New(log *logger.Logger, baseURL string, timeout time.Duration) HTTPClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		OnAfterResponse(func(c *resty.Client, resp *resty.Response) error {
			log.DebugContext(resp.Request.Context(), "HTTP request completed",
				logger.StringField("method", resp.Request.Method),
				logger.StringField("url", resp.Request.URL),
				logger.IntField("status_code", resp.StatusCode()),
				logger.DurationField("duration", resp.Time()),
			)
			return nil
		})

	return &RestyClient{client: client}
}

// Get sends a GET request. When result is non-nil the body is decoded into it.
func (rc *RestyClient) Get(ctx context.Context, endpoint string, queryParams map[string]string, headers map[string]string, result interface{}) (*BaseResponse, error) {
	req := rc.client.R().SetContext(ctx)

	if result != nil {
		req.SetResult(result)
	}

	if queryParams != nil {
		req.SetQueryParams(queryParams)
	}

	if headers != nil {
		req.SetHeaders(headers)
	}

	resp, err := req.Get(endpoint)
	if resp == nil {
		return &BaseResponse{}, err
	}
	return &BaseResponse{
		StatusCode: resp.StatusCode(),
		Body:       resp.Body(),
		Headers:    resp.Header(),
	}, err
}
