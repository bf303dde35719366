package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/xscan/xscan/internal/auth"
	"github.com/xscan/xscan/internal/cache"
	"github.com/xscan/xscan/internal/model"
	"github.com/xscan/xscan/internal/notify"
	"github.com/xscan/xscan/internal/repository"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func pageOf[T any](items []T, p model.Pagination) *model.Page[T] {
	p = p.Normalize()
	total := len(items)
	start := min(p.Offset(), total)
	end := min(start+p.Limit, total)
	return &model.Page[T]{Items: items[start:end], Total: int64(total), Pagination: p}
}

// memStore is an in-memory stand-in for the Postgres repository.
type memStore struct {
	mu            sync.Mutex
	users         map[string]*model.User
	accounts      map[string]*model.BankAccount
	txs           []*model.Transaction
	donations     []*model.Donation
	apps          map[string]*model.StreamerApplication
	follows       map[[2]string]time.Time
	settings      map[string]*model.OBSSettings
	deliveries    []*model.AlertDelivery
	notifications []*model.Notification

	statsCalls int
	feeRows    []model.FeeReportRow
	feeFrom    time.Time
	feeTo      time.Time
}

func newMemStore() *memStore {
	return &memStore{
		users:    map[string]*model.User{},
		accounts: map[string]*model.BankAccount{},
		apps:     map[string]*model.StreamerApplication{},
		follows:  map[[2]string]time.Time{},
		settings: map[string]*model.OBSSettings{},
	}
}

// addUser seeds a user with a known password.
func (m *memStore) addUser(username string, role model.Role, balance int64) *model.User {
	hash, err := auth.HashPassword("password123")
	if err != nil {
		panic(err)
	}
	u := &model.User{
		ID:           newID(),
		Email:        username + "@example.com",
		Username:     username,
		PasswordHash: hash,
		DisplayName:  strings.ToUpper(username[:1]) + username[1:],
		Role:         role,
		Status:       model.UserStatusActive,
		Balance:      balance,
		CreatedAt:    time.Now().UTC(),
	}
	m.mu.Lock()
	m.users[u.ID] = u
	m.mu.Unlock()
	cp := *u
	return &cp
}

func (m *memStore) balance(id string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.users[id].Balance
}

func (m *memStore) user(id string) *model.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *m.users[id]
	return &cp
}

// Users

func (m *memStore) CreateUser(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return repository.ErrEmailExists
		}
		if existing.Username == u.Username {
			return repository.ErrUsernameExists
		}
	}
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *memStore) findUser(match func(*model.User) bool) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (m *memStore) GetUserByID(_ context.Context, id string) (*model.User, error) {
	return m.findUser(func(u *model.User) bool { return u.ID == id })
}

func (m *memStore) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	return m.findUser(func(u *model.User) bool { return u.Email == email })
}

func (m *memStore) GetUserByUsername(_ context.Context, username string) (*model.User, error) {
	return m.findUser(func(u *model.User) bool { return u.Username == username })
}

func (m *memStore) mutateUser(id string, fn func(*model.User)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	fn(u)
	return nil
}

func (m *memStore) UpdatePassword(_ context.Context, id, hash string) error {
	return m.mutateUser(id, func(u *model.User) { u.PasswordHash = hash })
}

func (m *memStore) SetTwoFactor(_ context.Context, id, secretEnc string) error {
	return m.mutateUser(id, func(u *model.User) {
		u.TwoFactorSecret = secretEnc
		u.TwoFactorEnabled = secretEnc != ""
	})
}

func (m *memStore) RecordLogin(_ context.Context, id string, at time.Time) error {
	return m.mutateUser(id, func(u *model.User) { u.LastLoginAt = &at })
}

func (m *memStore) UpdateProfile(_ context.Context, user *model.User) (*model.User, error) {
	err := m.mutateUser(user.ID, func(u *model.User) {
		u.DisplayName = user.DisplayName
		u.Bio = user.Bio
		u.AvatarURL = user.AvatarURL
	})
	if err != nil {
		return nil, err
	}
	return m.user(user.ID), nil
}

func (m *memStore) DeleteUser(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	if u.Balance > 0 {
		return repository.ErrUserHasBalance
	}
	for _, t := range m.txs {
		if t.UserID == id && t.IsPendingWithdrawal() {
			return repository.ErrPendingWithdrawal
		}
	}
	delete(m.users, id)
	return nil
}

func (m *memStore) ListUsers(_ context.Context, uf repository.UserFilter, p model.Pagination) (*model.Page[model.User], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.User
	for _, u := range m.users {
		if uf.Role != "" && u.Role != uf.Role {
			continue
		}
		if uf.Status != "" && u.Status != uf.Status {
			continue
		}
		if uf.Query != "" && !strings.HasPrefix(u.Username, uf.Query) {
			continue
		}
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return pageOf(out, p), nil
}

func (m *memStore) UpdateRoleStatus(_ context.Context, id string, role *model.Role, status *model.UserStatus) (*model.User, error) {
	err := m.mutateUser(id, func(u *model.User) {
		if role != nil {
			u.Role = *role
		}
		if status != nil {
			u.Status = *status
		}
	})
	if err != nil {
		return nil, err
	}
	return m.user(id), nil
}

// Follows

func (m *memStore) followerCount(streamerID string) int64 {
	var n int64
	for k := range m.follows {
		if k[1] == streamerID {
			n++
		}
	}
	return n
}

func (m *memStore) GetPublicProfile(_ context.Context, username string) (*model.PublicProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			p := u.ToPublicProfile(m.followerCount(u.ID))
			return &p, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (m *memStore) SearchStreamers(_ context.Context, q string, p model.Pagination) (*model.Page[model.PublicProfile], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.PublicProfile
	for _, u := range m.users {
		if u.IsStreamer() && strings.HasPrefix(u.Username, strings.ToLower(q)) {
			out = append(out, u.ToPublicProfile(m.followerCount(u.ID)))
		}
	}
	return pageOf(out, p), nil
}

func (m *memStore) Follow(_ context.Context, followerID, streamerID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := [2]string{followerID, streamerID}
	if _, ok := m.follows[key]; ok {
		return false, nil
	}
	m.follows[key] = time.Now()
	return true, nil
}

func (m *memStore) Unfollow(_ context.Context, followerID, streamerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.follows, [2]string{followerID, streamerID})
	return nil
}

func (m *memStore) listFollows(match func(k [2]string) (string, bool), p model.Pagination) *model.Page[model.PublicProfile] {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.PublicProfile
	for k := range m.follows {
		if id, ok := match(k); ok {
			if u, ok := m.users[id]; ok {
				out = append(out, u.ToPublicProfile(m.followerCount(u.ID)))
			}
		}
	}
	return pageOf(out, p)
}

func (m *memStore) ListFollowing(_ context.Context, userID string, p model.Pagination) (*model.Page[model.PublicProfile], error) {
	return m.listFollows(func(k [2]string) (string, bool) { return k[1], k[0] == userID }, p), nil
}

func (m *memStore) ListFollowers(_ context.Context, streamerID string, p model.Pagination) (*model.Page[model.PublicProfile], error) {
	return m.listFollows(func(k [2]string) (string, bool) { return k[0], k[1] == streamerID }, p), nil
}

// Bank accounts

func (m *memStore) ListBankAccounts(_ context.Context, userID string) ([]*model.BankAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*model.BankAccount{}
	for _, a := range m.accounts {
		if a.UserID == userID {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) GetBankAccount(_ context.Context, userID, id string) (*model.BankAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok || a.UserID != userID {
		return nil, repository.ErrBankAccountNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memStore) CreateBankAccount(_ context.Context, acct *model.BankAccount, limit int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, a := range m.accounts {
		if a.UserID == acct.UserID {
			count++
		}
	}
	if count >= limit {
		return repository.ErrBankAccountLimit
	}
	if count == 0 {
		acct.IsDefault = true
	}
	if acct.IsDefault {
		for _, a := range m.accounts {
			if a.UserID == acct.UserID {
				a.IsDefault = false
			}
		}
	}
	cp := *acct
	m.accounts[acct.ID] = &cp
	return nil
}

func (m *memStore) UpdateBankAccount(_ context.Context, acct *model.BankAccount) (*model.BankAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[acct.ID]
	if !ok || a.UserID != acct.UserID {
		return nil, repository.ErrBankAccountNotFound
	}
	a.BankName = acct.BankName
	a.AccountHolder = acct.AccountHolder
	cp := *a
	return &cp, nil
}

func (m *memStore) SetDefaultBankAccount(_ context.Context, userID, id string) (*model.BankAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	target, ok := m.accounts[id]
	if !ok || target.UserID != userID {
		return nil, repository.ErrBankAccountNotFound
	}
	for _, a := range m.accounts {
		if a.UserID == userID {
			a.IsDefault = a.ID == id
		}
	}
	cp := *target
	return &cp, nil
}

func (m *memStore) DeleteBankAccount(_ context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok || a.UserID != userID {
		return repository.ErrBankAccountNotFound
	}
	delete(m.accounts, id)
	return nil
}

// Wallet

func (m *memStore) GetWallet(_ context.Context, userID string) (*model.Wallet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	w := &model.Wallet{Balance: u.Balance}
	for _, t := range m.txs {
		if t.UserID != userID {
			continue
		}
		switch {
		case t.IsPendingWithdrawal():
			w.PendingWithdrawals += t.Amount
		case t.Type == model.TxDonationReceived:
			w.TotalReceived += t.NetAmount
		case t.Type == model.TxDonationSent:
			w.TotalDonated += t.Amount
		}
	}
	return w, nil
}

func (m *memStore) matchTx(t *model.Transaction, tf repository.TransactionFilter) bool {
	return (tf.UserID == "" || t.UserID == tf.UserID) &&
		(tf.Type == "" || t.Type == tf.Type) &&
		(tf.Status == "" || t.Status == tf.Status)
}

func (m *memStore) ListTransactions(_ context.Context, tf repository.TransactionFilter, p model.Pagination) (*model.Page[model.Transaction], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Transaction
	for _, t := range m.txs {
		if m.matchTx(t, tf) {
			out = append(out, *t)
		}
	}
	return pageOf(out, p), nil
}

func (m *memStore) credit(id string, amount int64) error {
	u, ok := m.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.Balance += amount
	return nil
}

func (m *memStore) debit(id string, amount int64) error {
	u, ok := m.users[id]
	if !ok || u.Balance < amount {
		return repository.ErrInsufficientFunds
	}
	u.Balance -= amount
	return nil
}

func (m *memStore) Deposit(_ context.Context, t *model.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.credit(t.UserID, t.Amount); err != nil {
		return err
	}
	cp := *t
	m.txs = append(m.txs, &cp)
	return nil
}

func (m *memStore) RequestWithdrawal(_ context.Context, t *model.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.debit(t.UserID, t.Amount); err != nil {
		return err
	}
	cp := *t
	m.txs = append(m.txs, &cp)
	return nil
}

func (m *memStore) pendingWithdrawal(id string) (*model.Transaction, error) {
	for _, t := range m.txs {
		if t.ID == id && t.Type == model.TxWithdrawal {
			if t.Status != model.TxPending {
				return nil, repository.ErrNotPending
			}
			return t, nil
		}
	}
	return nil, repository.ErrTransactionNotFound
}

func (m *memStore) ApproveWithdrawal(_ context.Context, id string) (*model.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, err := m.pendingWithdrawal(id)
	if err != nil {
		return nil, err
	}
	t.Status = model.TxCompleted
	cp := *t
	return &cp, nil
}

func (m *memStore) RejectWithdrawal(_ context.Context, id, reason string, refund *model.Transaction) (*model.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, err := m.pendingWithdrawal(id)
	if err != nil {
		return nil, err
	}
	t.Status = model.TxFailed
	t.FailureReason = reason
	if err := m.credit(t.UserID, t.Amount); err != nil {
		return nil, err
	}
	refund.UserID = t.UserID
	refund.Type = model.TxRefund
	refund.Status = model.TxCompleted
	refund.Amount = t.Amount
	refund.NetAmount = t.Amount
	refund.ReferenceID = t.ID
	cp := *refund
	m.txs = append(m.txs, &cp)
	out := *t
	return &out, nil
}

// Donations

func (m *memStore) CreateDonation(_ context.Context, d *model.Donation, sent, received *model.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.debit(d.DonorID, d.Amount); err != nil {
		return err
	}
	if err := m.credit(d.StreamerID, d.NetAmount); err != nil {
		return err
	}
	dc, sc, rc := *d, *sent, *received
	m.donations = append(m.donations, &dc)
	m.txs = append(m.txs, &sc, &rc)
	return nil
}

func (m *memStore) matchDonation(d *model.Donation, df repository.DonationFilter) bool {
	return (df.DonorID == "" || d.DonorID == df.DonorID) &&
		(df.StreamerID == "" || d.StreamerID == df.StreamerID)
}

func (m *memStore) ListDonations(_ context.Context, df repository.DonationFilter, p model.Pagination) (*model.Page[model.Donation], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Donation
	for _, d := range m.donations {
		if m.matchDonation(d, df) {
			out = append(out, *d)
		}
	}
	return pageOf(out, p), nil
}

func (m *memStore) RecentDonations(_ context.Context, streamerID string, minAmount int64, since time.Time, limit int) ([]model.Donation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Donation{}
	for i := len(m.donations) - 1; i >= 0 && len(out) < limit; i-- {
		d := m.donations[i]
		if d.StreamerID == streamerID && d.Amount >= minAmount && d.CreatedAt.After(since) {
			out = append(out, *d)
		}
	}
	return out, nil
}

// Settings and deliveries

func (m *memStore) CreateSettings(_ context.Context, s *model.OBSSettings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.settings[s.StreamerID]; !ok {
		cp := *s
		m.settings[s.StreamerID] = &cp
	}
	return nil
}

func (m *memStore) GetSettings(_ context.Context, streamerID string) (*model.OBSSettings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.settings[streamerID]
	if !ok {
		return nil, repository.ErrSettingsNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memStore) GetSettingsByToken(_ context.Context, token string) (*model.OBSSettings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.settings {
		if s.OverlayToken == token {
			cp := *s
			return &cp, nil
		}
	}
	return nil, repository.ErrSettingsNotFound
}

func (m *memStore) UpdateSettings(_ context.Context, s *model.OBSSettings) (*model.OBSSettings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.settings[s.StreamerID]
	if !ok {
		return nil, repository.ErrSettingsNotFound
	}
	cp := *s
	cp.OverlayToken = existing.OverlayToken
	cp.WebhookSecretEnc = existing.WebhookSecretEnc
	m.settings[s.StreamerID] = &cp
	out := cp
	return &out, nil
}

func (m *memStore) SetOverlayToken(_ context.Context, streamerID, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.settings[streamerID]
	if !ok {
		return repository.ErrSettingsNotFound
	}
	s.OverlayToken = token
	return nil
}

func (m *memStore) SetWebhookSecret(_ context.Context, streamerID, secretEnc string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.settings[streamerID]
	if !ok {
		return repository.ErrSettingsNotFound
	}
	s.WebhookSecretEnc = secretEnc
	return nil
}

func (m *memStore) CreateDelivery(_ context.Context, d *model.AlertDelivery) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *d
	m.deliveries = append(m.deliveries, &cp)
	return nil
}

// Applications

func (m *memStore) HasPendingApplication(_ context.Context, userID, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.apps {
		if a.IsPending() && (a.UserID == userID || a.Email == email) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) CreateApplication(_ context.Context, a *model.StreamerApplication) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *a
	m.apps[a.ID] = &cp
	return nil
}

func (m *memStore) GetApplication(_ context.Context, id string) (*model.StreamerApplication, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.apps[id]
	if !ok {
		return nil, repository.ErrApplicationNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memStore) ListApplicationsByUser(_ context.Context, userID string) ([]*model.StreamerApplication, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*model.StreamerApplication{}
	for _, a := range m.apps {
		if a.UserID == userID {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memStore) ListApplications(_ context.Context, status model.ApplicationStatus, p model.Pagination) (*model.Page[model.StreamerApplication], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.StreamerApplication
	for _, a := range m.apps {
		if status == "" || a.Status == status {
			out = append(out, *a)
		}
	}
	return pageOf(out, p), nil
}

func (m *memStore) WithdrawApplication(_ context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.apps[id]
	if !ok || a.UserID != userID {
		return repository.ErrApplicationNotFound
	}
	if !a.IsPending() {
		return repository.ErrNotPending
	}
	delete(m.apps, id)
	return nil
}

func (m *memStore) ReviewApplication(_ context.Context, id string, status model.ApplicationStatus, note, reviewerID string, at time.Time, settings *model.OBSSettings) (*model.StreamerApplication, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.apps[id]
	if !ok {
		return nil, repository.ErrApplicationNotFound
	}
	if !a.IsPending() {
		return nil, repository.ErrNotPending
	}
	a.Status = status
	a.ReviewNote = note
	a.ReviewedBy = reviewerID
	a.ReviewedAt = &at
	if status == model.ApplicationApproved {
		if u, ok := m.users[a.UserID]; ok && u.Role == model.RoleUser {
			u.Role = model.RoleStreamer
		}
		if settings != nil {
			settings.StreamerID = a.UserID
			if _, exists := m.settings[a.UserID]; !exists {
				cp := *settings
				m.settings[a.UserID] = &cp
			}
		}
	}
	cp := *a
	return &cp, nil
}

// Admin and exports

func (m *memStore) DashboardStats(_ context.Context, now time.Time) (*model.DashboardStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statsCalls++
	return &model.DashboardStats{TotalUsers: int64(len(m.users)), GeneratedAt: now}, nil
}

func (m *memStore) FeeReport(_ context.Context, from, to time.Time) ([]model.FeeReportRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.feeFrom, m.feeTo = from, to
	return m.feeRows, nil
}

func (m *memStore) ExportTransactions(_ context.Context, tf repository.TransactionFilter, max int) ([]model.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Transaction
	for _, t := range m.txs {
		if m.matchTx(t, tf) && len(out) < max {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (m *memStore) ExportDonations(_ context.Context, df repository.DonationFilter, max int) ([]model.Donation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Donation
	for _, d := range m.donations {
		if m.matchDonation(d, df) && len(out) < max {
			out = append(out, *d)
		}
	}
	return out, nil
}

// Notifications

func (m *memStore) ListNotifications(_ context.Context, userID string, unreadOnly bool, p model.Pagination) (*model.Page[model.Notification], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Notification
	for _, n := range m.notifications {
		if n.UserID == userID && (!unreadOnly || !n.IsRead()) {
			out = append(out, *n)
		}
	}
	return pageOf(out, p), nil
}

func (m *memStore) CountUnread(_ context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var c int64
	for _, n := range m.notifications {
		if n.UserID == userID && !n.IsRead() {
			c++
		}
	}
	return c, nil
}

func (m *memStore) MarkRead(_ context.Context, userID, id string) (*model.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.notifications {
		if n.ID == id && n.UserID == userID {
			if n.ReadAt == nil {
				now := time.Now()
				n.ReadAt = &now
			}
			cp := *n
			return &cp, nil
		}
	}
	return nil, repository.ErrNotificationNotFound
}

func (m *memStore) MarkAllRead(_ context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var c int64
	now := time.Now()
	for _, n := range m.notifications {
		if n.UserID == userID && n.ReadAt == nil {
			n.ReadAt = &now
			c++
		}
	}
	return c, nil
}

// fakeSessions is an in-memory SessionStore and AdminCache.
type fakeSessions struct {
	mu       sync.Mutex
	denied   map[string]bool
	refresh  map[string]string
	status   map[string]model.UserStatus
	reset    map[string]string
	pending  map[string]string
	stats    *model.DashboardStats
	statsTTL time.Duration
	setErr   error
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{
		denied:  map[string]bool{},
		refresh: map[string]string{},
		status:  map[string]model.UserStatus{},
		reset:   map[string]string{},
		pending: map[string]string{},
	}
}

func (f *fakeSessions) DenyAccessToken(_ context.Context, jti string, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.denied[jti] = true
	return nil
}

func (f *fakeSessions) IsAccessTokenDenied(_ context.Context, jti string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.denied[jti], nil
}

func (f *fakeSessions) StoreRefreshToken(_ context.Context, jti, userID string, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refresh[jti] = userID
	return nil
}

func (f *fakeSessions) take(m map[string]string, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := m[key]
	if !ok {
		return "", cache.ErrNotFound
	}
	delete(m, key)
	return v, nil
}

func (f *fakeSessions) ConsumeRefreshToken(_ context.Context, jti string) (string, error) {
	return f.take(f.refresh, jti)
}

func (f *fakeSessions) RevokeRefreshToken(_ context.Context, jti string) error {
	_, _ = f.take(f.refresh, jti)
	return nil
}

func (f *fakeSessions) GetUserStatus(_ context.Context, userID string) (model.UserStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status[userID], nil
}

func (f *fakeSessions) SetUserStatus(_ context.Context, userID string, status model.UserStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return f.setErr
	}
	f.status[userID] = status
	return nil
}

func (f *fakeSessions) DeleteUserStatus(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.status, userID)
	return nil
}

func (f *fakeSessions) StoreResetToken(_ context.Context, hash, userID string, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reset[hash] = userID
	return nil
}

func (f *fakeSessions) ConsumeResetToken(_ context.Context, hash string) (string, error) {
	return f.take(f.reset, hash)
}

func (f *fakeSessions) StorePendingTwoFactor(_ context.Context, userID, secretEnc string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending[userID] = secretEnc
	return nil
}

func (f *fakeSessions) PeekPendingTwoFactor(_ context.Context, userID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.pending[userID]
	if !ok {
		return "", cache.ErrNotFound
	}
	return v, nil
}

func (f *fakeSessions) TakePendingTwoFactor(_ context.Context, userID string) (string, error) {
	return f.take(f.pending, userID)
}

func (f *fakeSessions) GetDashboardStats(_ context.Context) (*model.DashboardStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stats, nil
}

func (f *fakeSessions) SetDashboardStats(_ context.Context, stats *model.DashboardStats, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stats = stats
	f.statsTTL = ttl
	return nil
}

// fakeNotifier records published events.
type fakeNotifier struct {
	mu     sync.Mutex
	events []notify.Event
	err    error
}

func (f *fakeNotifier) Publish(_ context.Context, ev notify.Event) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.events = append(f.events, ev)
	return "1-0", nil
}

func (f *fakeNotifier) published() []notify.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]notify.Event(nil), f.events...)
}

// plainBox is a reversible SecretBox that marks values as encrypted.
type plainBox struct{}

func (plainBox) Encrypt(p string) (string, error) {
	return "enc:" + p, nil
}

func (plainBox) Decrypt(c string) (string, error) {
	p, ok := strings.CutPrefix(c, "enc:")
	if !ok {
		return "", errors.New("not encrypted")
	}
	return p, nil
}
