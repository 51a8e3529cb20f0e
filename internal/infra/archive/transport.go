package archive

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mr-tron/base58"

	"github.com/vietddude/weavearchive/internal/core/domain"
)

var ErrInvalidWalletKey = errors.New("invalid wallet key")

// HTTPTransport signs data items with an ed25519 wallet and posts them to an
// upload node.
type HTTPTransport struct {
	endpoint   string
	key        ed25519.PrivateKey
	httpClient *http.Client
}

type uploadRequest struct {
	Data      string       `json:"data"`
	Tags      []domain.Tag `json:"tags"`
	Owner     string       `json:"owner"`
	Signature string       `json:"signature"`
}

type uploadResponse struct {
	ID string `json:"id"`
}

// NewHTTPTransport creates a transport posting to <uploaderURL>/tx.
// walletKey is a base58 ed25519 secret: a 64-byte keypair or a 32-byte seed.
func NewHTTPTransport(uploaderURL, walletKey string, timeout time.Duration) (*HTTPTransport, error) {
	key, err := ParseWalletKey(walletKey)
	if err != nil {
		return nil, err
	}
	return &HTTPTransport{
		endpoint:   strings.TrimRight(uploaderURL, "/") + "/tx",
		key:        key,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// ParseWalletKey decodes a base58 ed25519 secret.
func ParseWalletKey(walletKey string) (ed25519.PrivateKey, error) {
	if walletKey == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidWalletKey)
	}
	raw, err := base58.Decode(walletKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidWalletKey, err)
	}
	switch len(raw) {
	case ed25519.PrivateKeySize:
		return ed25519.PrivateKey(raw), nil
	case ed25519.SeedSize:
		return ed25519.NewKeyFromSeed(raw), nil
	default:
		return nil, fmt.Errorf("%w: unexpected length %d", ErrInvalidWalletKey, len(raw))
	}
}

// Owner returns the base58 public key of the signing wallet.
func (t *HTTPTransport) Owner() string {
	return base58.Encode(t.key.Public().(ed25519.PublicKey))
}

// Send signs and posts item, returning the id assigned by the node.
func (t *HTTPTransport) Send(ctx context.Context, item DataItem) (string, error) {
	digest := SigningDigest(item)
	body, err := json.Marshal(uploadRequest{
		Data:      base64.StdEncoding.EncodeToString(item.Data),
		Tags:      item.Tags,
		Owner:     t.Owner(),
		Signature: base58.Encode(ed25519.Sign(t.key, digest[:])),
	})
	if err != nil {
		return "", fmt.Errorf("%w: marshal data item: %w", domain.ErrUploadRejected, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: create request: %w", domain.ErrUploadRejected, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w: %w", domain.ErrUploadRejected, domain.ErrTransport, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: %w: read response: %w", domain.ErrUploadRejected, domain.ErrTransport, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: http %d: %s", domain.ErrUploadRejected, resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var out uploadResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", fmt.Errorf("%w: parse response: %w", domain.ErrUploadRejected, err)
	}
	if out.ID == "" {
		return "", fmt.Errorf("%w: missing 'id' field in response", domain.ErrUploadRejected)
	}
	return out.ID, nil
}

// SigningDigest is sha256 over each tag name and value, then the data, every
// field prefixed with its little-endian u32 length.
func SigningDigest(item DataItem) [sha256.Size]byte {
	h := sha256.New()
	var lenBuf [4]byte
	write := func(b []byte) {
		binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(b)))
		h.Write(lenBuf[:])
		h.Write(b)
	}
	for _, tag := range item.Tags {
		write([]byte(tag.Name))
		write([]byte(tag.Value))
	}
	write(item.Data)

	var digest [sha256.Size]byte
	copy(digest[:], h.Sum(nil))
	return digest
}
