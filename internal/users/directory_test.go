package users

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gestor-crm/gestor/internal/rbac"
)

var fixedNow = time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

func newTestDirectory(seed ...Member) *Directory {
	d := NewDirectory(seed...)
	d.now = func() time.Time { return fixedNow }
	d.newID = func() string { return "invited" }
	return d
}

func TestInviteAddsActiveMember(t *testing.T) {
	d := newTestDirectory(SampleMembers(fixedNow)...)

	member, err := d.Invite(Invite{Name: " Ana Lima ", Email: "ana@empresa.com", Role: "viewer"})
	require.NoError(t, err)
	assert.Equal(t, Member{
		ID:        "invited",
		Name:      "Ana Lima",
		Email:     "ana@empresa.com",
		Role:      rbac.RoleViewer,
		Active:    true,
		CreatedAt: fixedNow,
	}, member)

	list := d.List()
	require.Len(t, list, 4)
	assert.Equal(t, "invited", list[3].ID)
}

func TestInviteValidation(t *testing.T) {
	d := newTestDirectory(SampleMembers(fixedNow)...)

	cases := []struct {
		name string
		in   Invite
		want error
	}{
		{"missing name", Invite{Email: "ana@empresa.com", Role: "viewer"}, ErrInvalidInvite},
		{"bad email", Invite{Name: "Ana", Email: "ana", Role: "viewer"}, ErrInvalidInvite},
		{"custom role", Invite{Name: "Ana", Email: "ana@empresa.com", Role: "custom"}, ErrInvalidInvite},
		{"duplicate email", Invite{Name: "Joao", Email: "JOAO@empresa.com", Role: "viewer"}, ErrDuplicateEmail},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := d.Invite(tc.in)
			assert.ErrorIs(t, err, tc.want)
		})
	}
	assert.Len(t, d.List(), 3)
}

func TestSetActiveAndAssignRole(t *testing.T) {
	d := newTestDirectory(SampleMembers(fixedNow)...)

	member, err := d.SetActive("3", true)
	require.NoError(t, err)
	assert.True(t, member.Active)

	member, err = d.AssignRole("3", rbac.RoleEditor)
	require.NoError(t, err)
	assert.Equal(t, rbac.RoleEditor, member.Role)

	got, err := d.Get("3")
	require.NoError(t, err)
	assert.True(t, got.Active)
	assert.Equal(t, rbac.RoleEditor, got.Role)

	_, err = d.AssignRole("3", rbac.RoleCustom)
	assert.ErrorIs(t, err, rbac.ErrUnknownRole)
	_, err = d.SetActive("missing", false)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRemove(t *testing.T) {
	d := newTestDirectory(SampleMembers(fixedNow)...)

	removed, err := d.Remove("2")
	require.NoError(t, err)
	assert.Equal(t, "Maria Santos", removed.Name)

	ids := []string{}
	for _, m := range d.List() {
		ids = append(ids, m.ID)
	}
	assert.Equal(t, []string{"1", "3"}, ids)

	_, err = d.Remove("2")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListIsACopy(t *testing.T) {
	d := newTestDirectory(SampleMembers(fixedNow)...)
	list := d.List()
	list[0].Name = "changed"

	got, err := d.Get("1")
	require.NoError(t, err)
	assert.Equal(t, "Joao Silva", got.Name)
}

func TestConcurrentToggles(t *testing.T) {
	d := NewDirectory(SampleMembers(fixedNow)...)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(active bool) {
			defer wg.Done()
			_, _ = d.SetActive("1", active)
			_ = d.List()
		}(i%2 == 0)
	}
	wg.Wait()
	_, err := d.Get("1")
	assert.NoError(t, err)
}

func TestInitials(t *testing.T) {
	assert.Equal(t, "JS", Member{Name: "Joao Silva"}.Initials())
	assert.Equal(t, "", Member{}.Initials())
}
