package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"encoding/json"
)

// ObjectInfo is the subset of object metadata the pipeline cares about.
type ObjectInfo struct {
	Name    string `json:"name"`
	Size    int64  `json:"size,string"`
	Updated string `json:"updated"`
}

var ErrObjectNotFound = errors.New("gcs: object not found")

func (b *Bucket) authedRequest(ctx context.Context, method, u string, body io.Reader) (*http.Request, error) {
	if b == nil || b.client == nil {
		return nil, errors.New("gcs bucket not initialized")
	}
	token, err := b.client.tokenSource.Token(ctx)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return req, nil
}

// Put uploads an object under the given name, replacing any existing content.
func (b *Bucket) Put(ctx context.Context, object string, data io.Reader, contentType string) error {
	u := fmt.Sprintf(
		"%s/upload/storage/v1/b/%s/o?uploadType=media&name=%s",
		b.client.baseURL,
		url.PathEscape(b.name),
		url.QueryEscape(object),
	)
	req, err := b.authedRequest(ctx, http.MethodPost, u, data)
	if err != nil {
		return err
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := b.client.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("gcs upload of %q failed: %s: %s", object, resp.Status, strings.TrimSpace(string(body)))
	}
	return nil
}

// Get downloads object contents. The caller owns the returned ReadCloser.
func (b *Bucket) Get(ctx context.Context, object string) (io.ReadCloser, error) {
	u := fmt.Sprintf(
		"%s/storage/v1/b/%s/o/%s?alt=media",
		b.client.baseURL,
		url.PathEscape(b.name),
		url.PathEscape(object),
	)
	req, err := b.authedRequest(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	resp, err := b.client.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNotFound {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, object)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		_ = resp.Body.Close()
		return nil, fmt.Errorf("gcs download of %q failed: %s: %s", object, resp.Status, strings.TrimSpace(string(body)))
	}
	return resp.Body, nil
}

// Exists reports whether the object is present without downloading it.
func (b *Bucket) Exists(ctx context.Context, object string) (bool, error) {
	info, err := b.Stat(ctx, object)
	if errors.Is(err, ErrObjectNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return info != nil, nil
}

// Stat fetches object metadata.
func (b *Bucket) Stat(ctx context.Context, object string) (*ObjectInfo, error) {
	u := fmt.Sprintf(
		"%s/storage/v1/b/%s/o/%s",
		b.client.baseURL,
		url.PathEscape(b.name),
		url.PathEscape(object),
	)
	req, err := b.authedRequest(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	resp, err := b.client.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, object)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gcs stat of %q failed: %s", object, resp.Status)
	}

	var info ObjectInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, err
	}
	return &info, nil
}

// Delete removes an object. Deleting a missing object is not an error.
func (b *Bucket) Delete(ctx context.Context, object string) error {
	u := fmt.Sprintf(
		"%s/storage/v1/b/%s/o/%s",
		b.client.baseURL,
		url.PathEscape(b.name),
		url.PathEscape(object),
	)
	req, err := b.authedRequest(ctx, http.MethodDelete, u, nil)
	if err != nil {
		return err
	}

	resp, err := b.client.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusNoContent || resp.StatusCode == http.StatusOK {
		return nil
	}
	return fmt.Errorf("gcs delete of %q failed: %s", object, resp.Status)
}

// List returns object names under the given prefix, sorted lexically.
// Pagination follows nextPageToken until the listing is exhausted.
func (b *Bucket) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	var out []ObjectInfo
	pageToken := ""
	for {
		u := fmt.Sprintf(
			"%s/storage/v1/b/%s/o?prefix=%s",
			b.client.baseURL,
			url.PathEscape(b.name),
			url.QueryEscape(prefix),
		)
		if pageToken != "" {
			u += "&pageToken=" + url.QueryEscape(pageToken)
		}
		req, err := b.authedRequest(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}

		resp, err := b.client.httpClient.Do(req)
		if err != nil {
			return nil, err
		}

		var page struct {
			Items         []ObjectInfo `json:"items"`
			NextPageToken string       `json:"nextPageToken"`
		}
		decodeErr := json.NewDecoder(resp.Body).Decode(&page)
		status := resp.StatusCode
		_ = resp.Body.Close()

		if status != http.StatusOK {
			return nil, fmt.Errorf("gcs list of prefix %q failed: %d", prefix, status)
		}
		if decodeErr != nil {
			return nil, decodeErr
		}

		out = append(out, page.Items...)
		if page.NextPageToken == "" {
			break
		}
		pageToken = page.NextPageToken
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
