package testutil

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// FakeAPI is an httptest server speaking the task API's HTTP+JSON protocol.
// Its base URL (including the /api prefix) is URL.
type FakeAPI struct {
	URL    string
	server *httptest.Server
	secret []byte

	mu       sync.Mutex
	users    map[string]apiUser // email -> user
	tasks    map[string][]apiTask
	failNext []int
	requests []RecordedRequest
	clock    time.Time
}

// RecordedRequest is a request observed by FakeAPI.
type RecordedRequest struct {
	Method        string
	Path          string
	Query         string
	Authorization string
	RequestID     string
}

type apiUser struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	hash  []byte
}

type apiTask struct {
	ID          string    `json:"_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Completed   bool      `json:"completed"`
	CreatedAt   time.Time `json:"createdAt"`
}

// NewFakeAPI starts a FakeAPI that is closed when the test ends.
func NewFakeAPI(t *testing.T) *FakeAPI {
	t.Helper()

	api := &FakeAPI{
		secret: []byte("fake-api-signing-secret-0123456789"),
		users:  make(map[string]apiUser),
		tasks:  make(map[string][]apiTask),
		clock:  time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC),
	}

	r := chi.NewRouter()
	r.Use(api.record)
	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", api.register)
		r.Post("/auth/login", api.login)
		r.Group(func(r chi.Router) {
			r.Use(api.authenticate)
			r.Get("/tasks", api.listTasks)
			r.Post("/tasks", api.createTask)
			r.Patch("/tasks/{id}", api.updateTask)
			r.Delete("/tasks/{id}", api.deleteTask)
		})
	})

	api.server = httptest.NewServer(r)
	api.URL = api.server.URL + "/api"
	t.Cleanup(api.server.Close)
	return api
}

// FailNext makes the next request answer with status.
// Calls queue up: each request consumes one.
func (a *FakeAPI) FailNext(status int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failNext = append(a.failNext, status)
}

// Requests returns the requests observed so far.
func (a *FakeAPI) Requests() []RecordedRequest {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]RecordedRequest, len(a.requests))
	copy(out, a.requests)
	return out
}

// IssueToken signs a token for userID that expires after ttl.
func (a *FakeAPI) IssueToken(userID string, ttl time.Duration) string {
	claims := jwt.MapClaims{
		"id":  userID,
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(ttl).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		panic(err)
	}
	return signed
}

func (a *FakeAPI) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a.mu.Lock()
		a.requests = append(a.requests, RecordedRequest{
			Method:        r.Method,
			Path:          r.URL.Path,
			Query:         r.URL.RawQuery,
			Authorization: r.Header.Get("Authorization"),
			RequestID:     r.Header.Get("X-Request-ID"),
		})
		var status int
		if len(a.failNext) > 0 {
			status = a.failNext[0]
			a.failNext = a.failNext[1:]
		}
		a.mu.Unlock()

		if status != 0 {
			writeJSON(w, status, map[string]string{"message": "injected failure"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

type ctxUserKey struct{}

func (a *FakeAPI) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Not authorized, no token"})
			return
		}
		claims := jwt.MapClaims{}
		_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) { return a.secret, nil },
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Not authorized, token failed"})
			return
		}
		userID, _ := claims["id"].(string)
		next.ServeHTTP(w, r.WithContext(contextWithUser(r.Context(), userID)))
	})
}

type credentials struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (a *FakeAPI) register(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Email == "" || in.Password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid user data"})
		return
	}

	a.mu.Lock()
	if _, exists := a.users[in.Email]; exists {
		a.mu.Unlock()
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "User already exists"})
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.MinCost)
	if err != nil {
		a.mu.Unlock()
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": err.Error()})
		return
	}
	user := apiUser{ID: uuid.NewString(), Name: in.Name, Email: in.Email, hash: hash}
	a.users[in.Email] = user
	a.mu.Unlock()

	writeJSON(w, http.StatusCreated, map[string]any{"token": a.IssueToken(user.ID, time.Hour), "user": user})
}

func (a *FakeAPI) login(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid request"})
		return
	}

	a.mu.Lock()
	user, ok := a.users[in.Email]
	a.mu.Unlock()
	if !ok || bcrypt.CompareHashAndPassword(user.hash, []byte(in.Password)) != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid email or password"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"token": a.IssueToken(user.ID, time.Hour), "user": user})
}

func (a *FakeAPI) listTasks(w http.ResponseWriter, r *http.Request) {
	userID := userFromContext(r.Context())
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit < 1 {
		limit = 10
	}
	needle := strings.ToLower(q.Get("search"))

	a.mu.Lock()
	var matched []apiTask
	for _, t := range a.tasks[userID] {
		if needle == "" || strings.Contains(strings.ToLower(t.Title), needle) ||
			strings.Contains(strings.ToLower(t.Description), needle) {
			matched = append(matched, t)
		}
	}
	a.mu.Unlock()

	sort.SliceStable(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })
	totalPages := int(math.Ceil(float64(len(matched)) / float64(limit)))

	pageTasks := []apiTask{}
	if start := (page - 1) * limit; start < len(matched) {
		end := min(start+limit, len(matched))
		pageTasks = matched[start:end]
	}
	writeJSON(w, http.StatusOK, map[string]any{"tasks": pageTasks, "totalPages": totalPages})
}

func (a *FakeAPI) createTask(w http.ResponseWriter, r *http.Request) {
	userID := userFromContext(r.Context())
	var in struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Title == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Title is required"})
		return
	}

	a.mu.Lock()
	a.clock = a.clock.Add(time.Second)
	task := apiTask{ID: uuid.NewString(), Title: in.Title, Description: in.Description, CreatedAt: a.clock}
	a.tasks[userID] = append(a.tasks[userID], task)
	a.mu.Unlock()

	writeJSON(w, http.StatusCreated, task)
}

func (a *FakeAPI) updateTask(w http.ResponseWriter, r *http.Request) {
	userID := userFromContext(r.Context())
	id := chi.URLParam(r, "id")
	var in struct {
		Title       *string `json:"title"`
		Description *string `json:"description"`
		Completed   *bool   `json:"completed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid request"})
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	tasks := a.tasks[userID]
	for i := range tasks {
		if tasks[i].ID != id {
			continue
		}
		if in.Title != nil {
			tasks[i].Title = *in.Title
		}
		if in.Description != nil {
			tasks[i].Description = *in.Description
		}
		if in.Completed != nil {
			tasks[i].Completed = *in.Completed
		}
		writeJSON(w, http.StatusOK, tasks[i])
		return
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"message": "Task not found"})
}

func (a *FakeAPI) deleteTask(w http.ResponseWriter, r *http.Request) {
	userID := userFromContext(r.Context())
	id := chi.URLParam(r, "id")

	a.mu.Lock()
	defer a.mu.Unlock()
	tasks := a.tasks[userID]
	for i := range tasks {
		if tasks[i].ID == id {
			a.tasks[userID] = append(tasks[:i], tasks[i+1:]...)
			writeJSON(w, http.StatusOK, map[string]string{"message": "Task removed"})
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"message": "Task not found"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func contextWithUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ctxUserKey{}, userID)
}

func userFromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxUserKey{}).(string)
	return id
}
