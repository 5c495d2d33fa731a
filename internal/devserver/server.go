// Package devserver is a local stand-in for the RuneQuest backend. It
// exposes the same REST surface over an in-memory store so the CLI and
// the test suite have a collaborator to talk to; the real deployment
// points the client at the production API instead.
package devserver

import (
	"context"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"

	"questlog/internal/domain"
)

// Config for the dev API handler.
type Config struct {
	Store     *Store
	BasePath  string
	JWTSecret string
}

type userIDKey struct{}

// New returns an HTTP handler exposing the development API.
func New(cfg Config) (http.Handler, error) {
	if cfg.Store == nil {
		cfg.Store = NewStore()
	}
	if strings.TrimSpace(cfg.JWTSecret) == "" {
		return nil, errors.New("jwt secret is required")
	}
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/api"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}

	router := chi.NewRouter()
	router.Use(newAuthMiddleware(basePath, cfg.JWTSecret))
	hcfg := huma.DefaultConfig("RuneQuest Dev API", "0.1.0")
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerAuth(group, cfg)
	registerUsers(group, cfg.Store)
	registerTasks(group, cfg.Store)
	registerSkills(group, cfg.Store)
	registerRewards(group, cfg.Store)
	registerStoreFront(group, cfg.Store)

	return router, nil
}

func handleError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound):
		return huma.Error404NotFound(err.Error())
	case errors.Is(err, ErrDuplicate):
		return huma.Error409Conflict(err.Error())
	case errors.Is(err, ErrBadCredentials):
		return huma.Error401Unauthorized(err.Error())
	case errors.Is(err, ErrInsufficientCoins),
		errors.Is(err, ErrSamePassword),
		errors.Is(err, ErrAlreadyClaimed),
		errors.Is(err, ErrAlreadyOwned):
		return huma.Error400BadRequest(err.Error())
	default:
		return huma.Error500InternalServerError(err.Error())
	}
}

func userIDFromContext(ctx context.Context) (int64, error) {
	id, ok := ctx.Value(userIDKey{}).(int64)
	if !ok || id == 0 {
		return 0, huma.Error401Unauthorized("authentication required")
	}
	return id, nil
}

func registerAuth(api huma.API, cfg Config) {
	huma.Register(api, huma.Operation{
		OperationID: "login",
		Method:      http.MethodPost,
		Path:        "/auth/login",
		Summary:     "Authenticate and issue a bearer token",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		Body domain.LoginRequest `json:"body"`
	}) (*struct {
		Body domain.LoginResponse `json:"body"`
	}, error) {
		userID, err := cfg.Store.Authenticate(input.Body.Username, input.Body.Password)
		if err != nil {
			return nil, handleError(err)
		}
		token, err := issueToken(cfg.JWTSecret, userID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.LoginResponse `json:"body"`
		}{Body: domain.LoginResponse{JWTToken: token}}, nil
	})
}

func registerUsers(api huma.API, store *Store) {
	huma.Register(api, huma.Operation{
		OperationID: "register-user",
		Method:      http.MethodPost,
		Path:        "/users/register",
		Summary:     "Create an account",
		Errors:      []int{http.StatusBadRequest, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		Body domain.UserCreateRequest `json:"body"`
	}) (*struct{}, error) {
		if input.Body.Email == "" || input.Body.Nickname == "" || input.Body.Password == "" {
			return nil, huma.Error400BadRequest("nickname, email and password are required")
		}
		if err := store.RegisterUser(input.Body); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-profile",
		Method:      http.MethodGet,
		Path:        "/users/profile",
		Summary:     "Fetch the authenticated identity",
		Errors:      []int{http.StatusUnauthorized, http.StatusNotFound},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body domain.User `json:"body"`
	}, error) {
		userID, err := userIDFromContext(ctx)
		if err != nil {
			return nil, err
		}
		u, err := store.Profile(userID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.User `json:"body"`
		}{Body: u}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "update-user",
		Method:        http.MethodPut,
		Path:          "/users/{id}",
		Summary:       "Update profile fields",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusUnauthorized, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID   int64                    `path:"id"`
		Body domain.UserUpdateRequest `json:"body"`
	}) (*struct{}, error) {
		if _, err := userIDFromContext(ctx); err != nil {
			return nil, err
		}
		if err := store.UpdateUser(input.ID, input.Body); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "change-password",
		Method:        http.MethodPatch,
		Path:          "/users/{id}/password",
		Summary:       "Change password",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID   int64                        `path:"id"`
		Body domain.ChangePasswordRequest `json:"body"`
	}) (*struct{}, error) {
		if _, err := userIDFromContext(ctx); err != nil {
			return nil, err
		}
		if err := store.ChangePassword(input.ID, input.Body); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "select-avatar",
		Method:        http.MethodPatch,
		Path:          "/users/avatar/{avatarName}",
		Summary:       "Equip an owned avatar",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusUnauthorized, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		AvatarName string `path:"avatarName"`
	}) (*struct{}, error) {
		userID, err := userIDFromContext(ctx)
		if err != nil {
			return nil, err
		}
		if err := store.SelectAvatar(userID, input.AvatarName); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerTasks(api huma.API, store *Store) {
	huma.Register(api, huma.Operation{
		OperationID: "list-tasks",
		Method:      http.MethodGet,
		Path:        "/tasks/user/{id}",
		Summary:     "List the user's tasks",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		ID int64 `path:"id"`
	}) (*struct {
		Body []domain.Task `json:"body"`
	}, error) {
		if _, err := userIDFromContext(ctx); err != nil {
			return nil, err
		}
		return &struct {
			Body []domain.Task `json:"body"`
		}{Body: store.ListTasks(input.ID)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-task",
		Method:        http.MethodPost,
		Path:          "/tasks/register",
		Summary:       "Create a task",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		Body domain.TaskCreateRequest `json:"body"`
	}) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		userID, err := userIDFromContext(ctx)
		if err != nil {
			return nil, err
		}
		if input.Body.Title == "" || input.Body.SkillName == "" {
			return nil, huma.Error400BadRequest("title and skillName are required")
		}
		t, err := store.CreateTask(userID, input.Body)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "complete-task",
		Method:        http.MethodPatch,
		Path:          "/tasks/{id}/complete",
		Summary:       "Complete a task, crediting XP and coins",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusUnauthorized, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID int64 `path:"id"`
	}) (*struct{}, error) {
		userID, err := userIDFromContext(ctx)
		if err != nil {
			return nil, err
		}
		if err := store.CompleteTask(userID, input.ID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "block-task",
		Method:        http.MethodPatch,
		Path:          "/tasks/{id}/block",
		Summary:       "Toggle a task between blocked and pending",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusUnauthorized, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID int64 `path:"id"`
	}) (*struct{}, error) {
		userID, err := userIDFromContext(ctx)
		if err != nil {
			return nil, err
		}
		if err := store.BlockTask(userID, input.ID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-task",
		Method:        http.MethodDelete,
		Path:          "/tasks/{id}",
		Summary:       "Delete a task",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusUnauthorized, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID int64 `path:"id"`
	}) (*struct{}, error) {
		userID, err := userIDFromContext(ctx)
		if err != nil {
			return nil, err
		}
		if err := store.DeleteTask(userID, input.ID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerSkills(api huma.API, store *Store) {
	huma.Register(api, huma.Operation{
		OperationID: "list-skills",
		Method:      http.MethodGet,
		Path:        "/skills/user/{id}",
		Summary:     "List the user's skills",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		ID int64 `path:"id"`
	}) (*struct {
		Body []domain.Skill `json:"body"`
	}, error) {
		if _, err := userIDFromContext(ctx); err != nil {
			return nil, err
		}
		return &struct {
			Body []domain.Skill `json:"body"`
		}{Body: store.ListSkills(input.ID)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-skill",
		Method:        http.MethodPost,
		Path:          "/skills/register",
		Summary:       "Create a skill",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		Body domain.SkillCreateRequest `json:"body"`
	}) (*struct {
		Body domain.Skill `json:"body"`
	}, error) {
		userID, err := userIDFromContext(ctx)
		if err != nil {
			return nil, err
		}
		if input.Body.Name == "" {
			return nil, huma.Error400BadRequest("name is required")
		}
		sk, err := store.CreateSkill(userID, input.Body)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Skill `json:"body"`
		}{Body: sk}, nil
	})
}

func registerRewards(api huma.API, store *Store) {
	huma.Register(api, huma.Operation{
		OperationID: "list-rewards",
		Method:      http.MethodGet,
		Path:        "/rewards/user/{id}",
		Summary:     "List the user's rewards",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		ID int64 `path:"id"`
	}) (*struct {
		Body []domain.Reward `json:"body"`
	}, error) {
		if _, err := userIDFromContext(ctx); err != nil {
			return nil, err
		}
		return &struct {
			Body []domain.Reward `json:"body"`
		}{Body: store.ListRewards(input.ID)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-reward",
		Method:        http.MethodPost,
		Path:          "/rewards/register",
		Summary:       "Create a reward priced from its like level",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		Body domain.RewardCreateRequest `json:"body"`
	}) (*struct {
		Body domain.Reward `json:"body"`
	}, error) {
		userID, err := userIDFromContext(ctx)
		if err != nil {
			return nil, err
		}
		if input.Body.Title == "" {
			return nil, huma.Error400BadRequest("title is required")
		}
		r, err := store.CreateReward(userID, input.Body)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Reward `json:"body"`
		}{Body: r}, nil
	})
}

func registerStoreFront(api huma.API, store *Store) {
	huma.Register(api, huma.Operation{
		OperationID: "list-avatars",
		Method:      http.MethodGet,
		Path:        "/store/avatars",
		Summary:     "List the cosmetic catalog",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.Avatar `json:"body"`
	}, error) {
		userID, err := userIDFromContext(ctx)
		if err != nil {
			return nil, err
		}
		return &struct {
			Body []domain.Avatar `json:"body"`
		}{Body: store.ListAvatars(userID)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "buy-avatar",
		Method:        http.MethodPatch,
		Path:          "/store/buy/avatar/{id}",
		Summary:       "Buy an avatar",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID int64 `path:"id"`
	}) (*struct{}, error) {
		userID, err := userIDFromContext(ctx)
		if err != nil {
			return nil, err
		}
		if err := store.BuyAvatar(userID, input.ID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "buy-reward",
		Method:        http.MethodPatch,
		Path:          "/store/buy/reward/{id}",
		Summary:       "Claim a reward, debiting its price",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID int64 `path:"id"`
	}) (*struct{}, error) {
		userID, err := userIDFromContext(ctx)
		if err != nil {
			return nil, err
		}
		if err := store.BuyReward(userID, input.ID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}
