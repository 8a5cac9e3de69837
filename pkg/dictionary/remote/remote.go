// Package remote fetches a dictionary from another service over HTTP.
package remote

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"censorship/pkg/dictionary"
)

const (
	timeout = 10 * time.Second

	// maxBodySize caps the dictionary document.
	maxBodySize = 10 << 20
)

type ErrNotFound struct {
	msg string
}

func (e *ErrNotFound) Error() string {
	return e.msg
}

// Source requests the dictionary with a GET to URL on every call.
type Source struct {
	URL    string
	client *http.Client
}

func New(url string) *Source {
	return &Source{
		URL:    url,
		client: &http.Client{Timeout: timeout},
	}
}

func (s *Source) Dictionary(ctx context.Context) (dictionary.Dictionary, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return dictionary.Dictionary{}, fmt.Errorf("error creating request to dictionary service: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return dictionary.Dictionary{}, fmt.Errorf("error calling dictionary service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return dictionary.Dictionary{}, &ErrNotFound{msg: "dictionary service returned 404 for " + s.URL}
	}

	if resp.StatusCode != http.StatusOK {
		return dictionary.Dictionary{}, fmt.Errorf("dictionary service returned status %d", resp.StatusCode)
	}

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return dictionary.Dictionary{}, fmt.Errorf("error reading response from dictionary service: %w", err)
	}

	d, err := dictionary.Parse(b)
	if err != nil {
		return dictionary.Dictionary{}, fmt.Errorf("error decoding response from dictionary service: %w", err)
	}
	log.Debugf("[remote] fetched %d terms from %s", len(d.Terms), s.URL)

	return d, nil
}
