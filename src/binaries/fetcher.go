package binaries

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/solignition/ignitor/src/utils/build_info"
	"github.com/solignition/ignitor/src/utils/config"
	"github.com/solignition/ignitor/src/utils/logger"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

var ErrBinaryUnavailable = errors.New("binary unavailable")

// Retrieves the borrower's binary for a loan. The concrete strategy
// (content-addressed fetch, signed upload, URL with hash verification)
// hides behind this interface.
type Fetcher interface {
	FetchBinary(ctx context.Context, loanID, borrower string) ([]byte, error)
}

// Fetches binaries over HTTP from a single configured endpoint
type HttpFetcher struct {
	config *config.Config
	log    *logrus.Entry
	client *resty.Client
}

func NewHttpFetcher(config *config.Config) (self *HttpFetcher) {
	self = new(HttpFetcher)
	self.config = config
	self.log = logger.NewSublogger("binary-fetcher")

	self.client = resty.New().
		SetBaseURL(config.Binaries.FetchUrl).
		SetTimeout(config.Binaries.FetchTimeout).
		SetHeader("User-Agent", "solignition.io/ignitor/"+build_info.Version).
		SetRetryCount(1)

	return
}

func (self *HttpFetcher) FetchBinary(ctx context.Context, loanID, borrower string) (out []byte, err error) {
	resp, err := self.client.R().
		SetContext(ctx).
		SetQueryParam("borrower", borrower).
		Get("/" + loanID)
	if err != nil {
		return
	}

	if resp.StatusCode() == http.StatusNotFound {
		err = fmt.Errorf("%w: loan %s", ErrBinaryUnavailable, loanID)
		return
	}
	if !resp.IsSuccess() {
		err = fmt.Errorf("unexpected status fetching binary: %s", resp.Status())
		return
	}

	out = resp.Body()
	return
}
