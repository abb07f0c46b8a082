// Package parser decodes AmoCRM webhook deliveries.
//
// AmoCRM posts webhooks form-encoded with PHP-style bracket keys:
//
//	leads[add][0][id]=901
//	leads[add][0][custom_fields][0][name]=Зона
//	leads[add][0][custom_fields][0][values][0][value]=Зона 3
//
// The keys are folded into a tree, lists are rebuilt from numeric segments
// and the tree is decoded into model.WebhookPayload through encoding/json.
package parser

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"amokanban/pkg/model"
)

var (
	ErrEmptyBody          = errors.New("webhook body is empty")
	ErrUnsupportedPayload = errors.New("unsupported webhook content type")
)

// Parse decodes a webhook body by its content type. JSON and form bodies are
// accepted; with no content type the body is sniffed.
func Parse(contentType string, body []byte) (model.WebhookPayload, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return model.WebhookPayload{}, ErrEmptyBody
	}

	mediaType := ""
	if contentType != "" {
		if mt, _, err := mime.ParseMediaType(contentType); err == nil {
			mediaType = mt
		}
	}

	switch {
	case mediaType == "application/json", mediaType == "" && body[0] == '{':
		return ParseJSON(body)
	case mediaType == "application/x-www-form-urlencoded", mediaType == "":
		values, err := url.ParseQuery(string(body))
		if err != nil {
			return model.WebhookPayload{}, fmt.Errorf("invalid form body: %w", err)
		}
		return ParseForm(values)
	default:
		return model.WebhookPayload{}, fmt.Errorf("%w: %s", ErrUnsupportedPayload, mediaType)
	}
}

func ParseJSON(body []byte) (model.WebhookPayload, error) {
	var payload model.WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return model.WebhookPayload{}, fmt.Errorf("invalid JSON webhook: %w", err)
	}
	return payload, nil
}

// ParseForm decodes bracket-keyed form values. When a path holds both a
// scalar and nested keys, the nested keys win.
func ParseForm(values url.Values) (model.WebhookPayload, error) {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	root := map[string]any{}
	for _, key := range keys {
		vs := values[key]
		if len(vs) == 0 {
			continue
		}
		insert(root, splitKey(key), vs[0])
	}

	data, err := json.Marshal(listify(root))
	if err != nil {
		return model.WebhookPayload{}, fmt.Errorf("failed to encode form tree: %w", err)
	}
	return ParseJSON(data)
}

// splitKey turns "leads[add][0][id]" into [leads add 0 id]. A key without a
// well-formed bracket suffix is a single segment.
func splitKey(key string) []string {
	open := strings.IndexByte(key, '[')
	if open <= 0 || !strings.HasSuffix(key, "]") {
		return []string{key}
	}

	segments := []string{key[:open]}
	rest := key[open:]
	for rest != "" {
		if rest[0] != '[' {
			return []string{key}
		}
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			return []string{key}
		}
		segments = append(segments, rest[1:end])
		rest = rest[end+1:]
	}
	return segments
}

func insert(node map[string]any, path []string, value string) {
	for i, seg := range path {
		if i == len(path)-1 {
			if _, exists := node[seg]; !exists {
				node[seg] = value
			}
			return
		}

		next, ok := node[seg].(map[string]any)
		if !ok {
			next = map[string]any{}
			node[seg] = next
		}
		node = next
	}
}

// listify converts every map whose keys are all non-negative integers into a
// slice ordered by index.
func listify(node any) any {
	m, ok := node.(map[string]any)
	if !ok {
		return node
	}

	indices := make([]int, 0, len(m))
	for k := range m {
		idx, err := strconv.Atoi(k)
		if err != nil || idx < 0 {
			indices = nil
			break
		}
		indices = append(indices, idx)
	}

	if len(m) > 0 && indices != nil {
		sort.Ints(indices)
		list := make([]any, len(indices))
		for i, idx := range indices {
			list[i] = listify(m[strconv.Itoa(idx)])
		}
		return list
	}

	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = listify(v)
	}
	return out
}
