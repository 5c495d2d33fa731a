package main

import (
	"errors"
	"fmt"

	"questlog/internal/domain"
)

// Pre-call guards. A request that is certain to fail is never sent;
// the command reports locally and leaves the collections untouched.

var (
	errAvatarOwned   = errors.New("avatar already owned")
	errRewardClaimed = errors.New("reward already claimed")
)

func checkPasswordsMatch(password, confirm string) error {
	if password != confirm {
		return errors.New("passwords do not match")
	}
	return nil
}

func checkAvatarPurchase(u domain.User, a domain.Avatar) error {
	if a.Owned {
		return errAvatarOwned
	}
	if u.TotalCoins < a.Price {
		return fmt.Errorf("not enough coins: %s costs %d, you have %d",
			a.Title, a.Price, u.TotalCoins)
	}
	return nil
}

func checkRewardClaim(u domain.User, r domain.Reward) error {
	if r.Status == domain.RewardStatusClaimed {
		return errRewardClaimed
	}
	if u.TotalCoins < r.Price {
		return fmt.Errorf("not enough coins: %s costs %d, you have %d",
			r.Title, r.Price, u.TotalCoins)
	}
	return nil
}
