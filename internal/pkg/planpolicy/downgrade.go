package planpolicy

import (
	"context"
	"fmt"
	"log"
	"strings"
)

// ExecutePlanDowngrade cancels the billing subscriptions backing a listing's
// current plan and moves the listing to the target plan. It returns the ids
// of the subscriptions actually canceled.
//
// Subscriptions are found by scanning the provider's checkout records for
// this owner (by owner-id metadata or customer email): records tagged with
// the listing id win; records tagged with the current plan id are the
// fallback; otherwise no subscriptions are touched. Cancellations run
// sequentially, a subscription already canceled on the provider side is
// skipped, and any provider error aborts the whole operation before the plan
// pointer changes. Both steps are idempotent, so a retry from scratch is
// safe.
func (s *Service) ExecutePlanDowngrade(ctx context.Context, ownerID uint, ownerEmail string, businessID uint, currentPlanID *uint, targetPlanID uint) ([]string, error) {
	records, err := s.billing.ListCheckoutRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing checkout records: %w", err)
	}

	subscriptionIDs := selectSubscriptionIDs(records, ownerID, ownerEmail, businessID, currentPlanID)

	canceled := make([]string, 0, len(subscriptionIDs))
	for _, subID := range subscriptionIDs {
		sub, err := s.billing.GetSubscription(ctx, subID)
		if err != nil {
			return canceled, fmt.Errorf("retrieving subscription %s: %w", subID, err)
		}
		if sub.IsCanceled() {
			log.Printf("subscription %s already canceled, skipping", subID)
			continue
		}
		if err := s.billing.CancelSubscription(ctx, subID); err != nil {
			return canceled, fmt.Errorf("canceling subscription %s: %w", subID, err)
		}
		canceled = append(canceled, subID)
	}

	if err := s.repo.SetBusinessPlan(businessID, targetPlanID); err != nil {
		return canceled, err
	}
	if len(canceled) > 0 {
		log.Printf("downgraded listing %d to plan %d, canceled subscriptions: %s", businessID, targetPlanID, strings.Join(canceled, ", "))
	}
	return canceled, nil
}

// selectSubscriptionIDs narrows the provider's checkout records down to the
// deduplicated subscription ids a downgrade must cancel.
func selectSubscriptionIDs(records []CheckoutRecord, ownerID uint, ownerEmail string, businessID uint, currentPlanID *uint) []string {
	var listingMatches, planMatches []string
	for _, rec := range records {
		if rec.Mode != CheckoutRecordModeSubscription || rec.SubscriptionID == "" {
			continue
		}
		ownedByID := rec.OwnerID != 0 && rec.OwnerID == ownerID
		ownedByEmail := ownerEmail != "" && strings.EqualFold(rec.CustomerEmail, ownerEmail)
		if !ownedByID && !ownedByEmail {
			continue
		}
		if rec.BusinessID == businessID {
			listingMatches = append(listingMatches, rec.SubscriptionID)
			continue
		}
		if currentPlanID != nil && rec.PlanID == *currentPlanID {
			planMatches = append(planMatches, rec.SubscriptionID)
		}
	}

	matches := listingMatches
	if len(matches) == 0 {
		matches = planMatches
	}

	seen := make(map[string]struct{}, len(matches))
	out := make([]string, 0, len(matches))
	for _, id := range matches {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
