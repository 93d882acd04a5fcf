// SPDX-License-Identifier: MPL-2.0

package identity

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrUnknownUser is returned when a user name is not registered.
	ErrUnknownUser = errors.New("unknown user")
	// ErrUserExists is returned when adding a user that already exists.
	ErrUserExists = errors.New("user already exists")
	// ErrInvalidName is returned for empty names or names with separators.
	ErrInvalidName = errors.New("invalid name")
	// ErrBadPassword is returned when a password does not match.
	ErrBadPassword = errors.New("authentication failure")
)

type (
	// Registry stores users, their group membership and password hashes.
	// It is safe for concurrent use.
	Registry struct {
		mu     sync.RWMutex
		users  map[string]*account
		groups map[string]struct{}
		cost   int
	}

	// UserSpec describes a user to add.
	UserSpec struct {
		Name     string
		Password string
		// Groups are supplementary groups; the primary group is always a
		// group named after the user.
		Groups []string
	}

	account struct {
		id   Identity
		hash []byte
	}
)

// NewRegistry returns a registry holding only root, with no password set
// (root cannot authenticate by password until SetPassword is called).
// cost is the bcrypt cost; values below bcrypt.MinCost use bcrypt.MinCost.
func NewRegistry(cost int) *Registry {
	if cost < bcrypt.MinCost {
		cost = bcrypt.MinCost
	}
	r := &Registry{
		users:  make(map[string]*account),
		groups: map[string]struct{}{RootName: {}},
		cost:   cost,
	}
	r.users[RootName] = &account{id: Root()}
	return r
}

func validName(name string) bool {
	return name != "" && !strings.ContainsAny(name, " \t:/,%")
}

// AddGroup registers a group. Adding an existing group is a no-op.
func (r *Registry) AddGroup(name string) error {
	if !validName(name) {
		return fmt.Errorf("group %q: %w", name, ErrInvalidName)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.groups[name] = struct{}{}
	return nil
}

// AddUser registers a user with a primary group of the same name. Unknown
// supplementary groups are created on the fly.
func (r *Registry) AddUser(spec UserSpec) (Identity, error) {
	if !validName(spec.Name) {
		return Identity{}, fmt.Errorf("user %q: %w", spec.Name, ErrInvalidName)
	}
	for _, g := range spec.Groups {
		if !validName(g) {
			return Identity{}, fmt.Errorf("group %q: %w", g, ErrInvalidName)
		}
	}

	var hash []byte
	if spec.Password != "" {
		h, err := bcrypt.GenerateFromPassword([]byte(spec.Password), r.cost)
		if err != nil {
			return Identity{}, fmt.Errorf("hashing password for %s: %w", spec.Name, err)
		}
		hash = h
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[spec.Name]; ok {
		return Identity{}, fmt.Errorf("%s: %w", spec.Name, ErrUserExists)
	}
	id := Identity{Name: spec.Name, PrimaryGroup: spec.Name}
	r.groups[spec.Name] = struct{}{}
	for _, g := range spec.Groups {
		r.groups[g] = struct{}{}
		if g != spec.Name && !slices.Contains(id.Groups, g) {
			id.Groups = append(id.Groups, g)
		}
	}
	r.users[spec.Name] = &account{id: id, hash: hash}
	return cloneIdentity(id), nil
}

// Lookup returns the identity registered under name.
func (r *Registry) Lookup(name string) (Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	acc, ok := r.users[name]
	if !ok {
		return Identity{}, fmt.Errorf("%s: %w", name, ErrUnknownUser)
	}
	return cloneIdentity(acc.id), nil
}

// GroupExists reports whether a group is registered.
func (r *Registry) GroupExists(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.groups[name]
	return ok
}

// AddToGroup appends group to a user's supplementary groups.
func (r *Registry) AddToGroup(user, group string) error {
	if !validName(group) {
		return fmt.Errorf("group %q: %w", group, ErrInvalidName)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	acc, ok := r.users[user]
	if !ok {
		return fmt.Errorf("%s: %w", user, ErrUnknownUser)
	}
	r.groups[group] = struct{}{}
	if !acc.id.InGroup(group) {
		acc.id.Groups = append(acc.id.Groups, group)
	}
	return nil
}

// Users returns all registered user names, sorted.
func (r *Registry) Users() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.users))
	for n := range r.users {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Members returns the users that belong to group, sorted.
func (r *Registry) Members(group string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []string
	for n, acc := range r.users {
		if acc.id.InGroup(group) {
			out = append(out, n)
		}
	}
	sort.Strings(out)
	return out
}

// Groups returns all registered group names, sorted.
func (r *Registry) Groups() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.groups))
	for g := range r.groups {
		out = append(out, g)
	}
	sort.Strings(out)
	return out
}

// CheckPassword verifies password for user. Users without a password never
// authenticate.
func (r *Registry) CheckPassword(user, password string) error {
	r.mu.RLock()
	acc, ok := r.users[user]
	var hash []byte
	if ok {
		hash = acc.hash
	}
	r.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%s: %w", user, ErrUnknownUser)
	}
	if len(hash) == 0 || bcrypt.CompareHashAndPassword(hash, []byte(password)) != nil {
		return ErrBadPassword
	}
	return nil
}

// SetPassword replaces a user's password hash.
func (r *Registry) SetPassword(user, password string) error {
	h, err := bcrypt.GenerateFromPassword([]byte(password), r.cost)
	if err != nil {
		return fmt.Errorf("hashing password for %s: %w", user, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	acc, ok := r.users[user]
	if !ok {
		return fmt.Errorf("%s: %w", user, ErrUnknownUser)
	}
	acc.hash = h
	return nil
}

// PasswdFile renders the registry in /etc/passwd layout.
func (r *Registry) PasswdFile() string {
	var b strings.Builder
	for i, name := range r.Users() {
		home := "/home/" + name
		if name == RootName {
			home = "/root"
		}
		fmt.Fprintf(&b, "%s:x:%d:%d::%s:/bin/vsh\n", name, i, i, home)
	}
	return b.String()
}

// GroupFile renders the registry in /etc/group layout.
func (r *Registry) GroupFile() string {
	var b strings.Builder
	for i, g := range r.Groups() {
		fmt.Fprintf(&b, "%s:x:%d:%s\n", g, i, strings.Join(r.Members(g), ","))
	}
	return b.String()
}

func cloneIdentity(id Identity) Identity {
	id.Groups = slices.Clone(id.Groups)
	return id
}
