package devserver

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-faster/errors"

	"questlog/internal/domain"
)

// Store errors mapped to HTTP statuses by the handlers.
var (
	ErrNotFound          = errors.New("not found")
	ErrDuplicate         = errors.New("email or nickname already registered")
	ErrBadCredentials    = errors.New("invalid username or password")
	ErrInsufficientCoins = errors.New("insufficient coins")
	ErrSamePassword      = errors.New("new password must differ from the current one")
	ErrAlreadyClaimed    = errors.New("reward already claimed")
	ErrAlreadyOwned      = errors.New("avatar already owned")
)

// XP needed to advance one level; both users and skills level every
// levelStep XP.
const levelStep = 100

type user struct {
	domain.User
	password string
}

type task struct {
	domain.Task
	userID int64
}

type skill struct {
	domain.Skill
	userID int64
}

type reward struct {
	domain.Reward
	userID int64
}

// Store is the in-memory backing state for the development server. It
// stands in for the real backend: XP curves, pricing, and debits live
// here, observed by the client only through fetches.
type Store struct {
	mu      sync.Mutex
	nextID  int64
	users   map[int64]*user
	tasks   map[int64]*task
	skills  map[int64]*skill
	rewards map[int64]*reward
	avatars []domain.Avatar
	owned   map[int64]map[int64]bool // userID -> avatarID
	now     func() time.Time
}

func NewStore() *Store {
	s := &Store{
		nextID:  1,
		users:   map[int64]*user{},
		tasks:   map[int64]*task{},
		skills:  map[int64]*skill{},
		rewards: map[int64]*reward{},
		owned:   map[int64]map[int64]bool{},
		now:     time.Now,
	}
	s.avatars = []domain.Avatar{
		{ID: s.id(), Title: "Cavaleiro", Icon: "\U0001F6E1", IconName: "knight", Price: 0},
		{ID: s.id(), Title: "Mago", Icon: "\U0001F9D9", IconName: "wizard", Price: 80},
		{ID: s.id(), Title: "Arqueira", Icon: "\U0001F3F9", IconName: "archer", Price: 100},
		{ID: s.id(), Title: "Dragão", Icon: "\U0001F409", IconName: "dragon", Price: 150},
	}
	return s
}

func (s *Store) id() int64 {
	v := s.nextID
	s.nextID++
	return v
}

// --- users ---

func (s *Store) RegisterUser(req domain.UserCreateRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, req.Email) || strings.EqualFold(u.Nickname, req.Nickname) {
			return ErrDuplicate
		}
	}
	id := s.id()
	u := &user{
		User: domain.User{
			ID:                id,
			Name:              req.Name,
			Nickname:          req.Nickname,
			Email:             req.Email,
			CurrentAvatarIcon: s.avatars[0].Icon,
			CurrentAvatarName: s.avatars[0].IconName,
			Level:             1,
			XPToNextLevel:     levelStep,
			CreatedAt:         s.now().UTC().Format(time.RFC3339),
		},
		password: req.Password,
	}
	s.users[id] = u
	// Everyone owns the starter avatar.
	s.owned[id] = map[int64]bool{s.avatars[0].ID: true}
	return nil
}

// Authenticate matches username against nickname or email.
func (s *Store) Authenticate(username, password string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if (strings.EqualFold(u.Nickname, username) || strings.EqualFold(u.Email, username)) && u.password == password {
			return u.ID, nil
		}
	}
	return 0, ErrBadCredentials
}

func (s *Store) Profile(userID int64) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return domain.User{}, ErrNotFound
	}
	return u.User, nil
}

func (s *Store) UpdateUser(userID int64, req domain.UserUpdateRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return ErrNotFound
	}
	if strings.TrimSpace(req.Name) != "" {
		u.Name = req.Name
	}
	return nil
}

func (s *Store) ChangePassword(userID int64, req domain.ChangePasswordRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return ErrNotFound
	}
	if u.password != req.CurrentPassword {
		return ErrBadCredentials
	}
	if req.NewPassword == req.CurrentPassword {
		return ErrSamePassword
	}
	u.password = req.NewPassword
	return nil
}

func (s *Store) SelectAvatar(userID int64, iconName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return ErrNotFound
	}
	for _, a := range s.avatars {
		if a.IconName == iconName {
			if !s.owned[userID][a.ID] {
				return ErrNotFound
			}
			u.CurrentAvatarName = a.IconName
			u.CurrentAvatarIcon = a.Icon
			return nil
		}
	}
	return ErrNotFound
}

// --- tasks ---

func (s *Store) CreateTask(userID int64, req domain.TaskCreateRequest) (domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[userID]; !ok {
		return domain.Task{}, ErrNotFound
	}
	xp := domain.DifficultyXP(req.Difficulty)
	t := &task{
		Task: domain.Task{
			ID:          s.id(),
			Title:       req.Title,
			Description: req.Description,
			Status:      domain.TaskStatusPending,
			TaskXP:      xp,
			TaskCoins:   xp / 2,
			SkillName:   req.SkillName,
		},
		userID: userID,
	}
	s.tasks[t.ID] = t
	if sk := s.findSkill(userID, req.SkillName); sk != nil {
		sk.TotalTasks++
	}
	return t.Task, nil
}

func (s *Store) ListTasks(userID int64) []domain.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Task
	for _, t := range s.tasks {
		if t.userID == userID {
			out = append(out, t.Task)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// CompleteTask flips the status and credits XP and coins to the owning
// user and skill, leveling both as thresholds are crossed.
func (s *Store) CompleteTask(userID, taskID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[taskID]
	if !ok || t.userID != userID {
		return ErrNotFound
	}
	if t.Status == domain.TaskStatusCompleted {
		return nil
	}
	t.Status = domain.TaskStatusCompleted
	t.Block = false

	u := s.users[userID]
	u.TotalXP += t.TaskXP
	u.TotalCoins += t.TaskCoins
	u.Level = u.TotalXP/levelStep + 1
	u.XPToNextLevel = u.Level * levelStep
	u.LevelPercentage = u.TotalXP % levelStep * 100 / levelStep

	if sk := s.findSkill(userID, t.SkillName); sk != nil {
		sk.TotalXP += t.TaskXP
		sk.Level = sk.TotalXP/levelStep + 1
		sk.ProgressXP = sk.TotalXP % levelStep
		sk.XPToNextLevel = levelStep - sk.ProgressXP
		sk.LevelPercentage = sk.ProgressXP * 100 / levelStep
	}
	return nil
}

// BlockTask toggles blocked <-> pending; completed tasks stay completed.
func (s *Store) BlockTask(userID, taskID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[taskID]
	if !ok || t.userID != userID {
		return ErrNotFound
	}
	if t.Status == domain.TaskStatusCompleted {
		return nil
	}
	if t.Block {
		t.Block = false
		t.Status = domain.TaskStatusPending
	} else {
		t.Block = true
		t.Status = domain.TaskStatusBlocked
	}
	return nil
}

func (s *Store) DeleteTask(userID, taskID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[taskID]
	if !ok || t.userID != userID {
		return ErrNotFound
	}
	delete(s.tasks, taskID)
	return nil
}

// --- skills ---

func (s *Store) CreateSkill(userID int64, req domain.SkillCreateRequest) (domain.Skill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[userID]; !ok {
		return domain.Skill{}, ErrNotFound
	}
	sk := &skill{
		Skill: domain.Skill{
			ID:            s.id(),
			Name:          req.Name,
			Icon:          req.Icon,
			Level:         1,
			XPToNextLevel: levelStep,
		},
		userID: userID,
	}
	s.skills[sk.ID] = sk
	return sk.Skill, nil
}

func (s *Store) ListSkills(userID int64) []domain.Skill {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Skill
	for _, sk := range s.skills {
		if sk.userID == userID {
			out = append(out, sk.Skill)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) findSkill(userID int64, name string) *skill {
	for _, sk := range s.skills {
		if sk.userID == userID && sk.Name == name {
			return sk
		}
	}
	return nil
}

// --- rewards ---

func (s *Store) CreateReward(userID int64, req domain.RewardCreateRequest) (domain.Reward, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[userID]; !ok {
		return domain.Reward{}, ErrNotFound
	}
	r := &reward{
		Reward: domain.Reward{
			ID:          s.id(),
			Title:       req.Title,
			Description: req.Description,
			Price:       domain.RewardCost(req.LikeLevel),
			Status:      domain.RewardStatusAvailable,
		},
		userID: userID,
	}
	s.rewards[r.ID] = r
	return s.rewardView(r), nil
}

// ListRewards reports status per the user's current balance: claimed
// stays claimed, otherwise "expensive" marks prices above the balance.
func (s *Store) ListRewards(userID int64) []domain.Reward {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Reward
	for _, r := range s.rewards {
		if r.userID == userID {
			out = append(out, s.rewardView(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) rewardView(r *reward) domain.Reward {
	view := r.Reward
	if view.Status != domain.RewardStatusClaimed {
		if u, ok := s.users[r.userID]; ok && view.Price > u.TotalCoins {
			view.Status = domain.RewardStatusExpensive
		} else {
			view.Status = domain.RewardStatusAvailable
		}
	}
	return view
}

func (s *Store) BuyReward(userID, rewardID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rewards[rewardID]
	if !ok || r.userID != userID {
		return ErrNotFound
	}
	if r.Status == domain.RewardStatusClaimed {
		return ErrAlreadyClaimed
	}
	u := s.users[userID]
	if u.TotalCoins < r.Price {
		return ErrInsufficientCoins
	}
	u.TotalCoins -= r.Price
	r.Status = domain.RewardStatusClaimed
	return nil
}

// --- store / avatars ---

func (s *Store) ListAvatars(userID int64) []domain.Avatar {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Avatar, len(s.avatars))
	copy(out, s.avatars)
	for i := range out {
		out[i].Owned = s.owned[userID][out[i].ID]
	}
	return out
}

func (s *Store) BuyAvatar(userID, avatarID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return ErrNotFound
	}
	var found *domain.Avatar
	for i := range s.avatars {
		if s.avatars[i].ID == avatarID {
			found = &s.avatars[i]
		}
	}
	if found == nil {
		return ErrNotFound
	}
	if s.owned[userID][avatarID] {
		return ErrAlreadyOwned
	}
	if u.TotalCoins < found.Price {
		return ErrInsufficientCoins
	}
	u.TotalCoins -= found.Price
	s.owned[userID][avatarID] = true
	return nil
}
