package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/ashureev/propdesk/internal/metrics"
)

// Reconcile merges directory contacts with conversation summaries.
//
// The result excludes selfID, is unique by canonical id and sorted by
// case-insensitive name. Directory records win on every field except
// UnreadCount; summaries for ids missing from the directory add a contact
// built from the summary's profile fragment.
func Reconcile(selfID string, directory []Contact, summaries []Summary) []Contact {
	selfID = CanonicalID(selfID)
	contacts := make([]Contact, 0, len(directory)+len(summaries))
	index := make(map[string]int, len(directory)+len(summaries))

	for _, c := range directory {
		c.UserID = CanonicalID(c.UserID)
		if c.UserID == "" || c.UserID == selfID {
			continue
		}
		if _, dup := index[c.UserID]; dup {
			continue
		}
		c.UnreadCount = 0
		index[c.UserID] = len(contacts)
		contacts = append(contacts, c)
	}
	sortContacts(contacts)
	for i, c := range contacts {
		index[c.UserID] = i
	}

	added := false
	for _, s := range summaries {
		id := CanonicalID(s.UserID)
		if id == "" || id == selfID {
			continue
		}
		if i, ok := index[id]; ok {
			contacts[i].UnreadCount = s.UnreadCount
			continue
		}
		c := s.Profile
		c.UserID = id
		c.UnreadCount = s.UnreadCount
		if strings.TrimSpace(c.Name) == "" {
			c.Name = UnknownContactName
		}
		index[id] = len(contacts)
		contacts = append(contacts, c)
		added = true
	}
	if added {
		sortContacts(contacts)
	}
	return contacts
}

func sortContacts(contacts []Contact) {
	slices.SortStableFunc(contacts, func(a, b Contact) int {
		if c := strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)); c != 0 {
			return c
		}
		return strings.Compare(a.UserID, b.UserID)
	})
}

// RefreshContacts fetches the directory and conversation summaries,
// reconciles them and publishes the result. Only one refresh runs at a time;
// a concurrent call returns ErrReconcileInFlight without side effects.
//
// A summary failure only costs unread counts. A directory failure empties
// the contact list and returns ErrDirectoryUnavailable.
func (in *Inbox) RefreshContacts(ctx context.Context) ([]Contact, error) {
	if !in.reconciling.TryLock() {
		in.logger.Debug("Contact refresh skipped, already in flight", "user_id", in.self.UserID)
		return nil, ErrReconcileInFlight
	}
	defer in.reconciling.Unlock()

	var (
		dirRaw, sumRaw json.RawMessage
		dirErr, sumErr error
		wg             sync.WaitGroup
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		dirRaw, dirErr = in.backend.Directory(ctx)
	}()
	go func() {
		defer wg.Done()
		sumRaw, sumErr = in.backend.ConversationSummaries(ctx)
	}()
	wg.Wait()

	var directory []Contact
	if dirErr == nil {
		directory, dirErr = DecodeDirectory(dirRaw)
	}
	if dirErr != nil {
		in.logger.Error("Failed to load user directory", "error", dirErr, "user_id", in.self.UserID)
		in.mu.Lock()
		in.contacts = []Contact{}
		in.mu.Unlock()
		metrics.Reconciliations.WithLabelValues("directory_failed").Inc()
		in.notifier.Error("Could not load contacts")
		return []Contact{}, fmt.Errorf("%w: %w", ErrDirectoryUnavailable, dirErr)
	}

	var summaries []Summary
	if sumErr == nil {
		summaries, sumErr = DecodeSummaries(sumRaw)
	}
	if sumErr != nil {
		in.logger.Warn("Conversation summaries unavailable, unread counts reset", "error", sumErr, "user_id", in.self.UserID)
		summaries = nil
		metrics.Reconciliations.WithLabelValues("summaries_degraded").Inc()
	} else {
		metrics.Reconciliations.WithLabelValues("ok").Inc()
	}

	contacts := Reconcile(in.self.UserID, directory, summaries)

	in.mu.Lock()
	in.contacts = slices.Clone(contacts)
	in.mu.Unlock()

	in.logger.Info("Contacts reconciled",
		"user_id", in.self.UserID,
		"directory", len(directory),
		"summaries", len(summaries),
		"contacts", len(contacts),
	)

	if len(contacts) == 0 {
		in.notifier.Info("No contacts available yet")
		return []Contact{}, nil
	}

	in.autoSelect(contacts[0].UserID)
	return contacts, nil
}

// autoSelect opens the first contact's conversation in the background when
// nothing is selected yet. It runs after the contact list is published.
func (in *Inbox) autoSelect(userID string) {
	in.mu.Lock()
	if in.selected != "" {
		in.mu.Unlock()
		return
	}
	epoch := in.beginSelectLocked(userID)
	in.mu.Unlock()

	in.logger.Debug("Auto-selected contact", "user_id", in.self.UserID, "contact_id", userID)
	in.goBackground(func(ctx context.Context) {
		_ = in.load(ctx, userID, epoch, false)
	})
}
