package domain

// Task statuses as the server reports them.
const (
	TaskStatusPending   = "pending"
	TaskStatusBlocked   = "blocked"
	TaskStatusCompleted = "completed"
)

// Reward statuses.
const (
	RewardStatusAvailable = "available"
	RewardStatusClaimed   = "claimed"
	RewardStatusExpensive = "expensive"
)

// Task difficulties accepted by the create endpoint.
const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

type User struct {
	ID                int64  `json:"id"`
	Name              string `json:"name"`
	Nickname          string `json:"nickname"`
	Email             string `json:"email"`
	CurrentAvatarIcon string `json:"currentAvatarIcon"`
	CurrentAvatarName string `json:"currentAvatarName"`
	Level             int    `json:"level"`
	TotalXP           int    `json:"totalXP"`
	XPToNextLevel     int    `json:"xpToNextLevel"`
	LevelPercentage   int    `json:"levelPercentage"`
	TotalCoins        int    `json:"totalCoins"`
	CreatedAt         string `json:"createdAt" format:"date-time"`
}

type Task struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status" enum:"pending,blocked,completed"`
	Block       bool   `json:"block"`
	TaskXP      int    `json:"taskXP"`
	TaskCoins   int    `json:"taskCoins"`
	SkillName   string `json:"skillName"`
}

type Skill struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	Icon            string `json:"icon"`
	Level           int    `json:"level"`
	XPToNextLevel   int    `json:"xpToNextLevel"`
	LevelPercentage int    `json:"levelPercentage"`
	ProgressXP      int    `json:"progressXP"`
	TotalXP         int    `json:"totalXP"`
	TotalTasks      int    `json:"totalTasks"`
}

type Avatar struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	Icon     string `json:"icon"`
	IconName string `json:"iconName"`
	Price    int    `json:"price"`
	Owned    bool   `json:"owned"`
}

type Reward struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Price       int    `json:"price"`
	Status      string `json:"status" enum:"available,claimed,expensive"`
}

// Request bodies.

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	JWTToken string `json:"jwtToken"`
}

type UserCreateRequest struct {
	Name     string `json:"name"`
	Nickname string `json:"nickname"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type UserUpdateRequest struct {
	Name string `json:"name"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type TaskCreateRequest struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Difficulty  string `json:"difficulty" enum:"easy,medium,hard"`
	SkillName   string `json:"skillName"`
}

type SkillCreateRequest struct {
	Name string `json:"name"`
	Icon string `json:"icon"`
}

type RewardCreateRequest struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	LikeLevel   int    `json:"likeLevel" minimum:"1" maximum:"5"`
}

// RewardCost maps a 1-5 like level to its coin price. The server is
// authoritative; the client uses this only for the pre-submit preview.
func RewardCost(likeLevel int) int {
	switch likeLevel {
	case 2:
		return 50
	case 3:
		return 75
	case 4:
		return 100
	case 5:
		return 150
	default:
		return 30
	}
}

// DifficultyXP returns the XP granted for a task of the given difficulty.
func DifficultyXP(difficulty string) int {
	switch difficulty {
	case DifficultyMedium:
		return 30
	case DifficultyHard:
		return 50
	default:
		return 20
	}
}
