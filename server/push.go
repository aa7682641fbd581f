// Copyright 2025 The AgentWire Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-json-experiment/json"
	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"

	"github.com/agentwire/agentwire"
)

const (
	// DefaultVerifyTimeout bounds the ownership challenge round trip.
	DefaultVerifyTimeout = 10 * time.Second

	// DefaultNotifyTimeout bounds one notification delivery.
	DefaultNotifyTimeout = 10 * time.Second

	// validationTokenParam is the query parameter carrying the challenge
	// nonce during URL verification.
	validationTokenParam = "validationToken"

	// notificationTokenHeader echoes the caller-supplied token back on
	// every delivery so the receiver can correlate it.
	notificationTokenHeader = "X-A2A-Notification-Token"

	// sha256HeaderClaim is the JWT claim binding the signed token to the
	// delivered request body.
	sha256HeaderClaim = "request_body_sha256"
)

// PushNotificationRegistry stores per-task push notification configs and
// fires best-effort task snapshots at the registered callback URLs.
//
// A config is accepted only after the callback URL proves ownership: the
// registry issues a challenge request carrying a nonce and requires a
// successful response echoing it within a bounded timeout. Registration
// fails closed on any verification failure.
//
// Deliveries are signed with a per-process RSA key; receivers fetch the
// public half from the JWKS endpoint served by [PushNotificationRegistry.ServeJWKS].
type PushNotificationRegistry struct {
	mu      sync.Mutex
	configs map[string]*agentwire.PushNotificationConfig

	client        *http.Client
	logger        *slog.Logger
	verifyTimeout time.Duration
	notifyTimeout time.Duration

	signKey jwk.Key
	jwks    jwk.Set
}

// PushNotificationRegistryOption configures the registry.
type PushNotificationRegistryOption func(*PushNotificationRegistry)

// WithHTTPClient sets the client used for verification and deliveries.
func WithHTTPClient(client *http.Client) PushNotificationRegistryOption {
	return func(r *PushNotificationRegistry) { r.client = client }
}

// WithVerifyTimeout bounds the ownership challenge round trip.
func WithVerifyTimeout(d time.Duration) PushNotificationRegistryOption {
	return func(r *PushNotificationRegistry) { r.verifyTimeout = d }
}

// WithNotifyTimeout bounds one notification delivery.
func WithNotifyTimeout(d time.Duration) PushNotificationRegistryOption {
	return func(r *PushNotificationRegistry) { r.notifyTimeout = d }
}

// NewPushNotificationRegistry returns a registry with a freshly generated
// RSA signing key.
func NewPushNotificationRegistry(logger *slog.Logger, opts ...PushNotificationRegistryOption) (*PushNotificationRegistry, error) {
	if logger == nil {
		logger = slog.Default()
	}
	r := &PushNotificationRegistry{
		configs:       make(map[string]*agentwire.PushNotificationConfig),
		client:        http.DefaultClient,
		logger:        logger,
		verifyTimeout: DefaultVerifyTimeout,
		notifyTimeout: DefaultNotifyTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}

	raw, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, fmt.Errorf("generate signing key: %w", err)
	}
	key, err := jwk.Import(raw)
	if err != nil {
		return nil, fmt.Errorf("import signing key: %w", err)
	}
	if err := key.Set(jwk.KeyIDKey, uuid.NewString()); err != nil {
		return nil, fmt.Errorf("set signing key id: %w", err)
	}
	pub, err := jwk.PublicKeyOf(key)
	if err != nil {
		return nil, fmt.Errorf("derive public key: %w", err)
	}
	jwks := jwk.NewSet()
	if err := jwks.AddKey(pub); err != nil {
		return nil, fmt.Errorf("build jwks: %w", err)
	}
	r.signKey = key
	r.jwks = jwks
	return r, nil
}

// VerifyURL runs the ownership challenge against callback: a GET carrying a
// fresh nonce in the validationToken query parameter, expecting a 2xx
// response whose body echoes the nonce.
func (r *PushNotificationRegistry) VerifyURL(ctx context.Context, callback string) error {
	u, err := url.Parse(callback)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("callback url %q is not absolute: %w", callback, agentwire.ErrPushVerificationFailed)
	}
	nonce := uuid.NewString()
	q := u.Query()
	q.Set(validationTokenParam, nonce)
	u.RawQuery = q.Encode()

	ctx, cancel := context.WithTimeout(ctx, r.verifyTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("build challenge request: %w", err)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("challenge %s: %v: %w", callback, err, agentwire.ErrPushVerificationFailed)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return fmt.Errorf("read challenge response: %v: %w", err, agentwire.ErrPushVerificationFailed)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("challenge %s: status %d: %w", callback, resp.StatusCode, agentwire.ErrPushVerificationFailed)
	}
	if !strings.Contains(string(body), nonce) {
		return fmt.Errorf("challenge %s: nonce not echoed: %w", callback, agentwire.ErrPushVerificationFailed)
	}
	r.logger.Info("verified push notification url", slog.String("url", callback))
	return nil
}

// Register stores config for the task after the callback URL passes the
// ownership challenge. Nothing is stored on verification failure.
func (r *PushNotificationRegistry) Register(ctx context.Context, taskID string, config *agentwire.PushNotificationConfig) error {
	if err := config.Validate(); err != nil {
		return fmt.Errorf("%v: %w", err, agentwire.ErrPushVerificationFailed)
	}
	if err := r.VerifyURL(ctx, config.URL); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.configs[taskID] = config
	return nil
}

// Config returns the registered config for the task, if any.
func (r *PushNotificationRegistry) Config(taskID string) (*agentwire.PushNotificationConfig, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	config, ok := r.configs[taskID]
	return config, ok
}

// Notify delivers the task snapshot to the task's registered callback, if
// any. Delivery is best effort: failures are logged and never propagate to
// the caller that triggered the state change, and nothing is retried.
func (r *PushNotificationRegistry) Notify(ctx context.Context, task *agentwire.Task) {
	config, ok := r.Config(task.ID)
	if !ok {
		return
	}
	if err := r.send(ctx, config, task); err != nil {
		r.logger.Error("push notification delivery failed",
			slog.String("task_id", task.ID),
			slog.String("url", config.URL),
			slog.Any("error", err))
		return
	}
	r.logger.Info("push notification delivered",
		slog.String("task_id", task.ID),
		slog.String("state", string(task.Status.State)))
}

func (r *PushNotificationRegistry) send(ctx context.Context, config *agentwire.PushNotificationConfig, task *agentwire.Task) error {
	body, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal task: %w", err)
	}
	token, err := r.signRequest(body)
	if err != nil {
		return fmt.Errorf("sign notification: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, r.notifyTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, config.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	if config.Token != "" {
		req.Header.Set(notificationTokenHeader, config.Token)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notification endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

// signRequest produces a JWT binding the delivery to its body through the
// request_body_sha256 claim.
func (r *PushNotificationRegistry) signRequest(body []byte) (string, error) {
	digest := sha256.Sum256(body)
	tok, err := jwt.NewBuilder().
		IssuedAt(time.Now()).
		Claim(sha256HeaderClaim, hex.EncodeToString(digest[:])).
		Build()
	if err != nil {
		return "", err
	}
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.RS256(), r.signKey))
	if err != nil {
		return "", err
	}
	return string(signed), nil
}

// JWKS returns the public key set notification receivers verify deliveries
// against.
func (r *PushNotificationRegistry) JWKS() jwk.Set {
	return r.jwks
}

// ServeJWKS serves the public key set as application/json.
func (r *PushNotificationRegistry) ServeJWKS(w http.ResponseWriter, _ *http.Request) {
	data, err := json.Marshal(r.jwks)
	if err != nil {
		http.Error(w, "failed to encode key set", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}
