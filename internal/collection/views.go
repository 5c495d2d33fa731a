package collection

import "questlog/internal/domain"

// Derived views are pure filters over the authoritative collection,
// recomputed on every call; they carry no state of their own.

// PendingTasks returns tasks not yet completed (including blocked ones).
func PendingTasks(tasks []domain.Task) []domain.Task {
	return filter(tasks, func(t domain.Task) bool { return t.Status != domain.TaskStatusCompleted })
}

func CompletedTasks(tasks []domain.Task) []domain.Task {
	return filter(tasks, func(t domain.Task) bool { return t.Status == domain.TaskStatusCompleted })
}

func BlockedTasks(tasks []domain.Task) []domain.Task {
	return filter(tasks, func(t domain.Task) bool { return t.Status == domain.TaskStatusBlocked })
}

func TasksForSkill(tasks []domain.Task, skillName string) []domain.Task {
	return filter(tasks, func(t domain.Task) bool { return t.SkillName == skillName })
}

// AvailableRewards returns rewards not yet claimed; the "expensive"
// tier is still listed, just not claimable.
func AvailableRewards(rewards []domain.Reward) []domain.Reward {
	return filter(rewards, func(r domain.Reward) bool { return r.Status != domain.RewardStatusClaimed })
}

func ClaimedRewards(rewards []domain.Reward) []domain.Reward {
	return filter(rewards, func(r domain.Reward) bool { return r.Status == domain.RewardStatusClaimed })
}

func OwnedAvatars(avatars []domain.Avatar) []domain.Avatar {
	return filter(avatars, func(a domain.Avatar) bool { return a.Owned })
}

// CatalogAvatars returns the purchasable remainder of the catalog.
func CatalogAvatars(avatars []domain.Avatar) []domain.Avatar {
	return filter(avatars, func(a domain.Avatar) bool { return !a.Owned })
}

func filter[T any](items []T, keep func(T) bool) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if keep(item) {
			out = append(out, item)
		}
	}
	return out
}
