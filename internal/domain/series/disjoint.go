package series

import (
	"context"
	"fmt"

	logger "github.com/sirupsen/logrus"

	"github.com/rios0rios0/patchseries/internal/domain/entities"
	"github.com/rios0rios0/patchseries/internal/domain/repositories"
)

// DisjointResult is the outcome of CreateDisjointTransactions.
type DisjointResult struct {
	Transactions []entities.Transaction
	Deferred     []*entities.Change // roots left out to respect the length limit
	Failed       []entities.PlannedTransaction
}

// CreateDisjointTransactions groups changes into transactions that share no
// change: roots whose transactions overlap are merged into one, keeping
// dependency order. Every dependency must be among changes.
//
// With maxTxnLength > 0 a merged transaction is truncated to the roots whose
// whole transaction still fits; the others are deferred. When not even one
// root fits (a cycle longer than the limit, for instance) every member of the
// group fails with KindTransactionTooLong.
func (s *Series) CreateDisjointTransactions(
	ctx context.Context,
	manifest repositories.ManifestRepository,
	changes []*entities.Change,
	maxTxnLength int,
) DisjointResult {
	var result DisjointResult

	limit := entities.NewPatchCache(changes...)
	groups := newUnionFind()
	var resolved []entities.PlannedTransaction
	for _, planned := range s.Plan(ctx, manifest, changes, limit, true) {
		if planned.Err != nil {
			result.Failed = append(result.Failed, planned)
			continue
		}
		if planned.Transaction.Len() == 0 {
			continue
		}
		resolved = append(resolved, planned)
		first := changeKey(planned.Transaction.Changes[0])
		for _, member := range planned.Transaction.Changes[1:] {
			groups.union(first, changeKey(member))
		}
	}

	var order []string
	byGroup := make(map[string][]entities.PlannedTransaction)
	for _, planned := range resolved {
		group := groups.find(changeKey(planned.Transaction.Changes[0]))
		if _, ok := byGroup[group]; !ok {
			order = append(order, group)
		}
		byGroup[group] = append(byGroup[group], planned)
	}

	for _, group := range order {
		members := byGroup[group]
		var merged, deferred []*entities.Change
		for _, planned := range members {
			var added []*entities.Change
			for _, change := range planned.Transaction.Changes {
				if entities.IndexOf(merged, change) < 0 {
					added = append(added, change)
				}
			}
			if maxTxnLength > 0 && len(merged)+len(added) > maxTxnLength {
				deferred = append(deferred, planned.Root)
				continue
			}
			merged = append(merged, added...)
		}

		if len(merged) == 0 {
			result.Failed = append(result.Failed, tooLong(members, maxTxnLength)...)
			continue
		}
		if len(deferred) > 0 {
			logger.Infof("Deferring %s to keep transactions under %d changes",
				entities.ChangeLinks(deferred), maxTxnLength)
		}
		result.Deferred = append(result.Deferred, deferred...)
		result.Transactions = append(result.Transactions, entities.Transaction{
			Inducing: members[0].Root,
			Changes:  merged,
		})
	}

	return result
}

func tooLong(members []entities.PlannedTransaction, maxTxnLength int) []entities.PlannedTransaction {
	var failed []entities.PlannedTransaction
	var seen []*entities.Change
	for _, planned := range members {
		for _, change := range planned.Transaction.Changes {
			if entities.IndexOf(seen, change) >= 0 {
				continue
			}
			seen = append(seen, change)
			failed = append(failed, entities.PlannedTransaction{
				Root:        change,
				Transaction: planned.Transaction,
				Err: entities.NewPatchError(entities.KindTransactionTooLong, change, fmt.Sprintf(
					"its transaction has %d changes, the limit is %d",
					planned.Transaction.Len(), maxTxnLength,
				)),
			})
		}
	}
	return failed
}

type unionFind struct {
	parent map[string]string
}

func newUnionFind() *unionFind {
	return &unionFind{parent: make(map[string]string)}
}

func (u *unionFind) find(key string) string {
	parent, ok := u.parent[key]
	if !ok || parent == key {
		u.parent[key] = key
		return key
	}
	root := u.find(parent)
	u.parent[key] = root
	return root
}

func (u *unionFind) union(a, b string) {
	rootA, rootB := u.find(a), u.find(b)
	if rootA != rootB {
		u.parent[rootB] = rootA
	}
}
