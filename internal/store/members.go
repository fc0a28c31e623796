package store

import (
	"context"
	"strings"

	"fjacquet/church-ledger/internal/ledgererror"
	"fjacquet/church-ledger/internal/models"
)

const entityMember = "member"

// MemberDirectory resolves members for matching and validation.
type MemberDirectory interface {
	FindMemberByID(ctx context.Context, id uint) (*models.Member, error)
	FindMemberByPhone(ctx context.Context, phone string) (*models.Member, error)
	FindMemberByEmailOrPhone(ctx context.Context, email, phone string) (*models.Member, error)
}

var _ MemberDirectory = (*Store)(nil)

// CreateMember inserts a member.
func (s *Store) CreateMember(ctx context.Context, m *models.Member) error {
	if err := s.conn(ctx).Create(m).Error; err != nil {
		return ledgererror.Dependency("create member", err)
	}
	return nil
}

// FindMemberByID loads a member.
func (s *Store) FindMemberByID(ctx context.Context, id uint) (*models.Member, error) {
	var m models.Member
	if err := s.conn(ctx).First(&m, id).Error; err != nil {
		return nil, translate("find member", entityMember, id, err)
	}
	return &m, nil
}

// FindMemberByPhone loads the first member with exactly this phone number.
func (s *Store) FindMemberByPhone(ctx context.Context, phone string) (*models.Member, error) {
	if strings.TrimSpace(phone) == "" {
		return nil, ledgererror.NotFound(entityMember, "phone")
	}
	var m models.Member
	if err := s.conn(ctx).Where("phone_number = ?", phone).Order("id").First(&m).Error; err != nil {
		return nil, translate("find member by phone", entityMember, phone, err)
	}
	return &m, nil
}

// FindMemberByEmailOrPhone matches on email (case-insensitive) or phone.
func (s *Store) FindMemberByEmailOrPhone(ctx context.Context, email, phone string) (*models.Member, error) {
	email = strings.TrimSpace(email)
	phone = strings.TrimSpace(phone)
	if email == "" && phone == "" {
		return nil, ledgererror.NotFound(entityMember, "contact")
	}

	q := s.conn(ctx).Order("id")
	switch {
	case email != "" && phone != "":
		q = q.Where("LOWER(email) = ? OR phone_number = ?", strings.ToLower(email), phone)
	case email != "":
		q = q.Where("LOWER(email) = ?", strings.ToLower(email))
	default:
		q = q.Where("phone_number = ?", phone)
	}

	var m models.Member
	if err := q.First(&m).Error; err != nil {
		return nil, translate("find member by contact", entityMember, email+"/"+phone, err)
	}
	return &m, nil
}

// ListHousehold returns the head and every member pointing at it, head first.
func (s *Store) ListHousehold(ctx context.Context, headID uint) ([]models.Member, error) {
	var rows []models.Member
	err := s.conn(ctx).
		Where("id = ? OR family_head_id = ?", headID, headID).
		Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, ledgererror.Dependency("list household", err)
	}

	out := make([]models.Member, 0, len(rows))
	for _, m := range rows {
		if m.ID == headID {
			out = append([]models.Member{m}, out...)
			continue
		}
		out = append(out, m)
	}
	return out, nil
}
