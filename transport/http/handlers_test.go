package http

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chainchat/chainchat/adapters/store"
	"github.com/chainchat/chainchat/adapters/tokenizer"
	"github.com/chainchat/chainchat/internal/eth"
	"github.com/chainchat/chainchat/registry"
	"github.com/chainchat/chainchat/service"
	"github.com/chainchat/chainchat/transport/ws"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testApp struct {
	router *gin.Engine
	store  *store.MemoryStore
	reg    *registry.Registry
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	signKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	s := store.NewMemoryStore()
	reg := registry.New()
	auth := service.NewAuthService(s, tokenizer.NewJWTTokenizer(signKey), 10*time.Minute, 24*time.Hour)
	users := service.NewUserService(s)
	chat := service.NewChatService(s, s, reg, nil)

	return &testApp{
		router: SetupRouter(auth, users, chat, ws.NewHandler(reg, auth)),
		store:  s,
		reg:    reg,
	}
}

func (a *testApp) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out))
}

type testWallet struct {
	key     *ecdsa.PrivateKey
	address string
}

func newTestWallet(t *testing.T) testWallet {
	t.Helper()
	key, err := ethcrypto.GenerateKey()
	require.NoError(t, err)
	return testWallet{key: key, address: ethcrypto.PubkeyToAddress(key.PublicKey).Hex()}
}

func (w testWallet) sign(t *testing.T, message string) string {
	t.Helper()
	sig, err := ethcrypto.Sign(eth.TextHash(message), w.key)
	require.NoError(t, err)
	return hexutil.Encode(sig)
}

// login runs the full challenge and verify flow and returns the bearer
// token plus the user's id.
func (a *testApp) login(t *testing.T, w testWallet) (token, userID string) {
	t.Helper()

	resp := a.do(t, http.MethodPost, "/auth/request", "", gin.H{"wallet_address": w.address})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	var challenge struct {
		Message string `json:"message"`
		Nonce   string `json:"nonce"`
	}
	decodeBody(t, resp, &challenge)
	require.NotEmpty(t, challenge.Message)
	require.NotEmpty(t, challenge.Nonce)

	resp = a.do(t, http.MethodPost, "/auth/verify", "", gin.H{
		"wallet_address": w.address,
		"message":        challenge.Message,
		"signature":      w.sign(t, challenge.Message),
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	var verified struct {
		AccessToken string       `json:"access_token"`
		TokenType   string       `json:"token_type"`
		User        UserResponse `json:"user"`
	}
	decodeBody(t, resp, &verified)
	require.NotEmpty(t, verified.AccessToken)
	require.Equal(t, "bearer", verified.TokenType)
	return verified.AccessToken, verified.User.ID
}

func TestHealth(t *testing.T) {
	app := newTestApp(t)

	resp := app.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.Code)

	var body struct {
		Status string `json:"status"`
	}
	decodeBody(t, resp, &body)
	assert.Equal(t, "healthy", body.Status)
}

func TestAuthFlow(t *testing.T) {
	assert := assert.New(t)
	app := newTestApp(t)
	w := newTestWallet(t)

	token, userID := app.login(t, w)

	resp := app.do(t, http.MethodGet, "/users/me", token, nil)
	assert.Equal(http.StatusOK, resp.Code)

	var me UserResponse
	decodeBody(t, resp, &me)
	assert.Equal(userID, me.ID)
	assert.NotEmpty(me.WalletAddress)
}

func TestAuthVerifyBadSignature(t *testing.T) {
	app := newTestApp(t)
	w := newTestWallet(t)
	imposter := newTestWallet(t)

	resp := app.do(t, http.MethodPost, "/auth/request", "", gin.H{"wallet_address": w.address})
	require.Equal(t, http.StatusOK, resp.Code)
	var challenge struct {
		Message string `json:"message"`
	}
	decodeBody(t, resp, &challenge)

	resp = app.do(t, http.MethodPost, "/auth/verify", "", gin.H{
		"wallet_address": w.address,
		"message":        challenge.Message,
		"signature":      imposter.sign(t, challenge.Message),
	})
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestAuthRequestBadAddress(t *testing.T) {
	app := newTestApp(t)

	resp := app.do(t, http.MethodPost, "/auth/request", "", gin.H{"wallet_address": "nope"})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestProtectedEndpointsRequireToken(t *testing.T) {
	assert := assert.New(t)
	app := newTestApp(t)

	resp := app.do(t, http.MethodGet, "/users/me", "", nil)
	assert.Equal(http.StatusUnauthorized, resp.Code)

	resp = app.do(t, http.MethodGet, "/users/me", "not-a-token", nil)
	assert.Equal(http.StatusUnauthorized, resp.Code)

	resp = app.do(t, http.MethodPost, "/messages", "", gin.H{"recipient": "x", "content": "y"})
	assert.Equal(http.StatusUnauthorized, resp.Code)
}

func TestUpdateProfile(t *testing.T) {
	assert := assert.New(t)
	app := newTestApp(t)
	w := newTestWallet(t)
	token, _ := app.login(t, w)

	resp := app.do(t, http.MethodPut, "/users/me", token, gin.H{
		"username":     "satoshi",
		"display_name": "Satoshi N.",
	})
	assert.Equal(http.StatusOK, resp.Code, resp.Body.String())

	var me UserResponse
	decodeBody(t, resp, &me)
	assert.Equal("satoshi", me.Username)
	assert.Equal("Satoshi N.", me.DisplayName)

	// A later patch with just the avatar must not clobber the rest.
	resp = app.do(t, http.MethodPut, "/users/me", token, gin.H{
		"avatar_url": "https://cdn.example/satoshi.png",
	})
	assert.Equal(http.StatusOK, resp.Code)
	decodeBody(t, resp, &me)
	assert.Equal("satoshi", me.Username)
	assert.Equal("https://cdn.example/satoshi.png", me.AvatarURL)
}

func TestUpdateProfileRejectsUnknownFields(t *testing.T) {
	app := newTestApp(t)
	w := newTestWallet(t)
	token, _ := app.login(t, w)

	resp := app.do(t, http.MethodPut, "/users/me", token, gin.H{"role": "admin"})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestUpdateProfileHandleConflict(t *testing.T) {
	app := newTestApp(t)
	first := newTestWallet(t)
	second := newTestWallet(t)
	firstToken, _ := app.login(t, first)
	secondToken, _ := app.login(t, second)

	resp := app.do(t, http.MethodPut, "/users/me", firstToken, gin.H{"username": "satoshi"})
	require.Equal(t, http.StatusOK, resp.Code)

	resp = app.do(t, http.MethodPut, "/users/me", secondToken, gin.H{"username": "satoshi"})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestSearchUsers(t *testing.T) {
	assert := assert.New(t)
	app := newTestApp(t)
	alice := newTestWallet(t)
	bob := newTestWallet(t)
	aliceToken, _ := app.login(t, alice)
	bobToken, bobID := app.login(t, bob)

	resp := app.do(t, http.MethodPut, "/users/me", bobToken, gin.H{"username": "bobby"})
	require.Equal(t, http.StatusOK, resp.Code)

	resp = app.do(t, http.MethodGet, "/users/search?q=bobby", aliceToken, nil)
	assert.Equal(http.StatusOK, resp.Code)

	var matches []UserResponse
	decodeBody(t, resp, &matches)
	require.Len(t, matches, 1)
	assert.Equal(bobID, matches[0].ID)

	// The caller never appears in their own results.
	resp = app.do(t, http.MethodGet, "/users/search?q=bobby", bobToken, nil)
	assert.Equal(http.StatusOK, resp.Code)
	decodeBody(t, resp, &matches)
	assert.Empty(matches)
}

func TestSendAndFetchMessages(t *testing.T) {
	assert := assert.New(t)
	app := newTestApp(t)
	alice := newTestWallet(t)
	bob := newTestWallet(t)
	aliceToken, aliceID := app.login(t, alice)
	bobToken, bobID := app.login(t, bob)

	resp := app.do(t, http.MethodPost, "/messages", aliceToken, gin.H{
		"recipient": bob.address,
		"content":   "hello bob",
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var sent MessageResponse
	decodeBody(t, resp, &sent)
	assert.Equal(aliceID, sent.Sender.ID)
	assert.Equal(bobID, sent.RecipientID)
	assert.Equal("hello bob", sent.Content)

	// Bob answers by sender id instead of wallet.
	resp = app.do(t, http.MethodPost, "/messages", bobToken, gin.H{
		"recipient_id": aliceID,
		"content":      "hi alice",
	})
	require.Equal(t, http.StatusOK, resp.Code)

	resp = app.do(t, http.MethodGet, fmt.Sprintf("/messages/%s", bobID), aliceToken, nil)
	assert.Equal(http.StatusOK, resp.Code)

	var history []MessageResponse
	decodeBody(t, resp, &history)
	require.Len(t, history, 2)
	assert.Equal("hi alice", history[0].Content)
	assert.Equal("hello bob", history[1].Content)
	assert.Equal(bobID, history[0].Sender.ID)
	assert.Equal(aliceID, history[1].Sender.ID)
}

func TestSendMessageValidation(t *testing.T) {
	assert := assert.New(t)
	app := newTestApp(t)
	alice := newTestWallet(t)
	token, _ := app.login(t, alice)

	resp := app.do(t, http.MethodPost, "/messages", token, gin.H{
		"recipient": "0x9999000000000000000000000000000000000009",
		"content":   "anyone home?",
	})
	assert.Equal(http.StatusNotFound, resp.Code)

	resp = app.do(t, http.MethodPost, "/messages", token, gin.H{
		"recipient": "not-a-ref",
		"content":   "hello",
	})
	assert.Equal(http.StatusBadRequest, resp.Code)

	resp = app.do(t, http.MethodPost, "/messages", token, gin.H{
		"recipient": alice.address,
		"content":   "   ",
	})
	assert.Equal(http.StatusBadRequest, resp.Code)
}

func TestMessagePagination(t *testing.T) {
	app := newTestApp(t)
	alice := newTestWallet(t)
	bob := newTestWallet(t)
	aliceToken, _ := app.login(t, alice)
	_, bobID := app.login(t, bob)

	for i := 0; i < 3; i++ {
		resp := app.do(t, http.MethodPost, "/messages", aliceToken, gin.H{
			"recipient": bob.address,
			"content":   fmt.Sprintf("msg %d", i),
		})
		require.Equal(t, http.StatusOK, resp.Code)
		// Distinct creation timestamps keep the ordering observable.
		time.Sleep(2 * time.Millisecond)
	}

	resp := app.do(t, http.MethodGet, fmt.Sprintf("/messages/%s?skip=1&limit=1", bobID), aliceToken, nil)
	require.Equal(t, http.StatusOK, resp.Code)

	var page []MessageResponse
	decodeBody(t, resp, &page)
	require.Len(t, page, 1)
	assert.Equal(t, "msg 1", page[0].Content)
}

func TestRealtimePushOnSend(t *testing.T) {
	assert := assert.New(t)
	app := newTestApp(t)
	alice := newTestWallet(t)
	bob := newTestWallet(t)
	aliceToken, _ := app.login(t, alice)
	_, bobID := app.login(t, bob)

	// Stand in for bob's websocket with a direct registry channel.
	ch := &captureChannel{frames: make(chan []byte, 4)}
	app.reg.Connect(bobID, ch)
	defer app.reg.Disconnect(bobID, ch)

	resp := app.do(t, http.MethodPost, "/messages", aliceToken, gin.H{
		"recipient": bob.address,
		"content":   "ping",
	})
	require.Equal(t, http.StatusOK, resp.Code)

	select {
	case frame := <-ch.frames:
		var envelope struct {
			Type    string `json:"type"`
			Message struct {
				Content string `json:"content"`
				Sender  struct {
					WalletAddress string `json:"wallet_address"`
				} `json:"sender"`
			} `json:"message"`
		}
		require.NoError(t, json.Unmarshal(frame, &envelope))
		assert.Equal("new_message", envelope.Type)
		assert.Equal("ping", envelope.Message.Content)
	case <-time.After(time.Second):
		t.Fatal("no push frame received")
	}
}

type captureChannel struct {
	frames chan []byte
}

func (c *captureChannel) Send(payload []byte) error {
	select {
	case c.frames <- payload:
		return nil
	default:
		return fmt.Errorf("capture buffer full")
	}
}

func (c *captureChannel) Close() error { return nil }
