// Copyright 2025 Warden Contributors
//
// SPDX-License-Identifier: AGPL-3.0-only
// Please see LICENSE files in the repository root for full details.

// Package bridge implements the platform collaborator interfaces against a
// local HTTP bridge that owns the actual messaging session. The bridge is
// trusted to implement its own bounded retry for transient send failures;
// this client only classifies outcomes.
package bridge

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/wardenhq/warden/platform"
	"github.com/wardenhq/warden/setup/config"
)

type Client struct {
	baseURL string
	token   string
	client  *http.Client
}

func NewClient(cfg *config.Bridge) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.AccessToken,
		client: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
	}
}

func (c *Client) ListAdministeredGroups(ctx context.Context) ([]platform.Group, error) {
	body, err := c.do(ctx, http.MethodGet, "/v1/groups", nil)
	if err != nil {
		return nil, err
	}
	var groups []platform.Group
	gjson.GetBytes(body, "groups").ForEach(func(_, g gjson.Result) bool {
		groups = append(groups, parseGroup(g))
		return true
	})
	return groups, nil
}

func (c *Client) FetchGroupMetadata(ctx context.Context, groupID string) (platform.Group, error) {
	body, err := c.do(ctx, http.MethodGet, "/v1/groups/"+url.PathEscape(groupID), nil)
	if err != nil {
		return platform.Group{}, err
	}
	group := parseGroup(gjson.ParseBytes(body))
	if group.ID == "" {
		group.ID = groupID
	}
	return group, nil
}

func (c *Client) RemoveParticipant(ctx context.Context, groupID, participantID string) error {
	payload, err := sjson.Set("", "participant", participantID)
	if err != nil {
		return err
	}
	_, err = c.do(ctx, http.MethodPost, "/v1/groups/"+url.PathEscape(groupID)+"/kick", []byte(payload))
	return err
}

func (c *Client) ResolveHiddenID(ctx context.Context, hiddenID string) (string, error) {
	body, err := c.do(ctx, http.MethodGet, "/v1/contacts/"+url.PathEscape(hiddenID), nil)
	if err != nil {
		return "", err
	}
	phone := gjson.GetBytes(body, "phone_number").String()
	if phone == "" {
		return "", platform.ErrNotFound
	}
	return phone, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	res, err := c.client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "bridge request %s %s failed", method, path)
	}
	defer res.Body.Close()
	resBody, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}

	switch {
	case res.StatusCode >= 200 && res.StatusCode < 300:
		return resBody, nil
	case res.StatusCode == http.StatusTooManyRequests:
		return nil, errors.Wrap(platform.ErrRateLimited, bridgeError(resBody))
	case res.StatusCode == http.StatusForbidden:
		return nil, errors.Wrap(platform.ErrPermissionDenied, bridgeError(resBody))
	case res.StatusCode == http.StatusNotFound:
		return nil, errors.Wrap(platform.ErrNotFound, bridgeError(resBody))
	default:
		return nil, fmt.Errorf("bridge returned HTTP %d: %s", res.StatusCode, bridgeError(resBody))
	}
}

func parseGroup(g gjson.Result) platform.Group {
	group := platform.Group{
		ID:   g.Get("id").String(),
		Name: g.Get("name").String(),
	}
	g.Get("participants").ForEach(func(_, p gjson.Result) bool {
		group.Participants = append(group.Participants, platform.Participant{
			ID:          p.Get("id").String(),
			PhoneNumber: p.Get("phone_number").String(),
			Role:        platform.AdminRole(p.Get("role").String()),
		})
		return true
	})
	return group
}

func bridgeError(body []byte) string {
	if msg := gjson.GetBytes(body, "error").String(); msg != "" {
		return msg
	}
	return strings.TrimSpace(string(body))
}
