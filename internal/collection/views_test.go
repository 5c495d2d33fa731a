package collection

import (
	"testing"

	"github.com/stretchr/testify/require"

	"questlog/internal/domain"
)

func TestTaskViews(t *testing.T) {
	tasks := []domain.Task{
		{ID: 1, Status: domain.TaskStatusPending, SkillName: "math"},
		{ID: 2, Status: domain.TaskStatusBlocked, SkillName: "math"},
		{ID: 3, Status: domain.TaskStatusCompleted, SkillName: "english"},
		{ID: 4, Status: domain.TaskStatusPending, SkillName: "english"},
	}

	pending := PendingTasks(tasks)
	require.Len(t, pending, 3, "blocked tasks still count as pending work")
	require.Equal(t, int64(1), pending[0].ID)
	require.Equal(t, int64(2), pending[1].ID)

	completed := CompletedTasks(tasks)
	require.Len(t, completed, 1)
	require.Equal(t, int64(3), completed[0].ID)

	blocked := BlockedTasks(tasks)
	require.Len(t, blocked, 1)
	require.Equal(t, int64(2), blocked[0].ID)

	math := TasksForSkill(tasks, "math")
	require.Len(t, math, 2)
	require.Empty(t, TasksForSkill(tasks, "history"))
}

func TestRewardViews(t *testing.T) {
	rewards := []domain.Reward{
		{ID: 1, Status: domain.RewardStatusAvailable},
		{ID: 2, Status: domain.RewardStatusExpensive},
		{ID: 3, Status: domain.RewardStatusClaimed},
	}

	available := AvailableRewards(rewards)
	require.Len(t, available, 2, "expensive rewards are listed, just not claimable")
	require.Equal(t, int64(1), available[0].ID)
	require.Equal(t, int64(2), available[1].ID)

	claimed := ClaimedRewards(rewards)
	require.Len(t, claimed, 1)
	require.Equal(t, int64(3), claimed[0].ID)
}

func TestAvatarViews(t *testing.T) {
	avatars := []domain.Avatar{
		{ID: 1, Owned: true},
		{ID: 2, Owned: false},
		{ID: 3, Owned: true},
	}

	require.Len(t, OwnedAvatars(avatars), 2)
	require.Len(t, CatalogAvatars(avatars), 1)
}

func TestViewsDoNotMutateInput(t *testing.T) {
	tasks := []domain.Task{
		{ID: 1, Status: domain.TaskStatusCompleted},
		{ID: 2, Status: domain.TaskStatusPending},
	}
	_ = PendingTasks(tasks)
	require.Equal(t, domain.TaskStatusCompleted, tasks[0].Status)
	require.Len(t, tasks, 2)
}
