// SPDX-License-Identifier: MPL-2.0

package identity

import (
	"errors"
	"slices"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestIdentity_InGroup(t *testing.T) {
	t.Parallel()

	id := Identity{Name: "alice", PrimaryGroup: "alice", Groups: []string{"wheel", "dev"}}
	for _, g := range []string{"alice", "wheel", "dev"} {
		if !id.InGroup(g) {
			t.Errorf("InGroup(%q) = false, want true", g)
		}
	}
	if id.InGroup("ops") || id.InGroup("") {
		t.Error("InGroup() matched a group alice is not in")
	}
	if got, want := id.AllGroups(), []string{"alice", "wheel", "dev"}; !slices.Equal(got, want) {
		t.Errorf("AllGroups() = %v, want %v", got, want)
	}
}

func TestRegistry_AddUserAndLookup(t *testing.T) {
	t.Parallel()

	r := NewRegistry(bcrypt.MinCost)
	if _, err := r.AddUser(UserSpec{Name: "alice", Password: "wonderland", Groups: []string{"wheel"}}); err != nil {
		t.Fatalf("AddUser() error = %v", err)
	}

	got, err := r.Lookup("alice")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if got.PrimaryGroup != "alice" || !got.InGroup("wheel") {
		t.Errorf("Lookup() = %+v, want primary alice in wheel", got)
	}
	if !r.GroupExists("wheel") {
		t.Error("GroupExists(wheel) = false")
	}

	if _, err := r.AddUser(UserSpec{Name: "alice"}); !errors.Is(err, ErrUserExists) {
		t.Errorf("duplicate AddUser() error = %v, want ErrUserExists", err)
	}
	if _, err := r.AddUser(UserSpec{Name: "bad name"}); !errors.Is(err, ErrInvalidName) {
		t.Errorf("AddUser(bad name) error = %v, want ErrInvalidName", err)
	}
	if _, err := r.Lookup("nobody"); !errors.Is(err, ErrUnknownUser) {
		t.Errorf("Lookup(nobody) error = %v, want ErrUnknownUser", err)
	}
}

func TestRegistry_LookupReturnsCopy(t *testing.T) {
	t.Parallel()

	r := NewRegistry(bcrypt.MinCost)
	if _, err := r.AddUser(UserSpec{Name: "bob", Groups: []string{"dev"}}); err != nil {
		t.Fatal(err)
	}
	id, _ := r.Lookup("bob")
	id.Groups[0] = "wheel"

	again, _ := r.Lookup("bob")
	if again.InGroup("wheel") {
		t.Error("mutating a looked-up identity changed the registry")
	}
}

func TestRegistry_Passwords(t *testing.T) {
	t.Parallel()

	r := NewRegistry(bcrypt.MinCost)
	if _, err := r.AddUser(UserSpec{Name: "alice", Password: "secret"}); err != nil {
		t.Fatal(err)
	}
	if _, err := r.AddUser(UserSpec{Name: "nopass"}); err != nil {
		t.Fatal(err)
	}

	if err := r.CheckPassword("alice", "secret"); err != nil {
		t.Errorf("CheckPassword(correct) error = %v", err)
	}
	if err := r.CheckPassword("alice", "wrong"); !errors.Is(err, ErrBadPassword) {
		t.Errorf("CheckPassword(wrong) error = %v, want ErrBadPassword", err)
	}
	if err := r.CheckPassword("nopass", ""); !errors.Is(err, ErrBadPassword) {
		t.Errorf("CheckPassword(no hash) error = %v, want ErrBadPassword", err)
	}

	if err := r.SetPassword("alice", "changed"); err != nil {
		t.Fatalf("SetPassword() error = %v", err)
	}
	if err := r.CheckPassword("alice", "changed"); err != nil {
		t.Errorf("CheckPassword(after change) error = %v", err)
	}
}

func TestRegistry_AddToGroupAndMembers(t *testing.T) {
	t.Parallel()

	r := NewRegistry(bcrypt.MinCost)
	for _, n := range []string{"alice", "bob"} {
		if _, err := r.AddUser(UserSpec{Name: n}); err != nil {
			t.Fatal(err)
		}
	}
	if err := r.AddToGroup("bob", "wheel"); err != nil {
		t.Fatalf("AddToGroup() error = %v", err)
	}
	if got, want := r.Members("wheel"), []string{"bob"}; !slices.Equal(got, want) {
		t.Errorf("Members(wheel) = %v, want %v", got, want)
	}
	if got, want := r.Users(), []string{"alice", "bob", "root"}; !slices.Equal(got, want) {
		t.Errorf("Users() = %v, want %v", got, want)
	}
}
