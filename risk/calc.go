package risk

import (
	"errors"
	"fmt"
)

var (
	// ErrInsufficientBudget means a budget cannot buy a single unit.
	ErrInsufficientBudget = errors.New("insufficient budget")
	// ErrBudgetUnavailable means the account cannot fund a whole cycle.
	ErrBudgetUnavailable = errors.New("budget unavailable")
)

// InsufficientBudgetError reports a budget/price pair that sizes to zero.
type InsufficientBudgetError struct {
	Budget int64
	Price  int64
}

func (e *InsufficientBudgetError) Error() string {
	if e.Price <= 0 {
		return fmt.Sprintf("insufficient budget: no usable price (budget %d)", e.Budget)
	}
	return fmt.Sprintf("insufficient budget: %d does not cover one unit at %d", e.Budget, e.Price)
}

func (e *InsufficientBudgetError) Is(target error) bool {
	return target == ErrInsufficientBudget
}

// BudgetUnavailableError reports a cycle that was not funded.
type BudgetUnavailableError struct {
	Available int64
	Required  int64
}

func (e *BudgetUnavailableError) Error() string {
	return fmt.Sprintf("budget unavailable: have %d, need %d", e.Available, e.Required)
}

func (e *BudgetUnavailableError) Is(target error) bool {
	return target == ErrBudgetUnavailable
}

// SplitBudget divides total evenly across n instruments. The remainder is
// left unallocated.
func SplitBudget(total int64, n int) int64 {
	if n <= 0 || total <= 0 {
		return 0
	}
	return total / int64(n)
}

// SizeOrder returns how many whole units budget buys at price. It never
// rounds up, so quantity*price <= budget.
func SizeOrder(budget, price int64) (int64, error) {
	if price <= 0 {
		return 0, &InsufficientBudgetError{Budget: budget, Price: price}
	}
	if budget <= 0 {
		return 0, &InsufficientBudgetError{Budget: budget, Price: price}
	}
	qty := budget / price
	if qty == 0 {
		return 0, &InsufficientBudgetError{Budget: budget, Price: price}
	}
	return qty, nil
}

// CheckBudget fails closed when available cannot cover required.
func CheckBudget(available, required int64) error {
	if available < required {
		return &BudgetUnavailableError{Available: available, Required: required}
	}
	return nil
}
