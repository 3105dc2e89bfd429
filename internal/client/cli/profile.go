package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/blogkeeper/internal/client/models"
	"github.com/dmitrijs2005/blogkeeper/internal/client/services"
)

// Profile fetches the current record from the server and prints it.
func (a *App) Profile(ctx context.Context) error {
	u, err := a.currentUser(ctx)
	if err != nil {
		return err
	}
	printProfile(u)
	return nil
}

// currentUser fetches the record, running the login prompt first when there
// is no session.
func (a *App) currentUser(ctx context.Context) (models.UserRecord, error) {
	u, err := a.session.CurrentUser(ctx)
	if errors.Is(err, services.ErrUnauthenticated) {
		if err := a.loginFirst(ctx); err != nil {
			return models.UserRecord{}, err
		}
		u, err = a.session.CurrentUser(ctx)
	}
	if err != nil {
		printError(err)
		return models.UserRecord{}, err
	}
	return u, nil
}

// Edit starts a draft seeded from the current record. The record itself is
// only replaced when save succeeds.
func (a *App) Edit(ctx context.Context) error {
	if a.isEditing() {
		printlnFn("Already editing; 'save' or 'cancel' first.")
		return nil
	}

	u, ok := a.session.CachedUser()
	if !ok {
		var err error
		if u, err = a.currentUser(ctx); err != nil {
			return err
		}
	}

	a.draft = models.NewProfileEditDraft(u)
	printDraft(a.draft)
	printlnFn(helpEditing)
	return nil
}

func (a *App) EditSet(field, value string) error {
	if !a.isEditing() {
		printlnFn("Not editing; type 'edit' first.")
		return nil
	}
	if err := a.draft.Set(field, value); err != nil {
		printlnFn("Error:", err.Error())
		return err
	}
	return nil
}

func (a *App) EditPicture(path string) error {
	if !a.isEditing() {
		printlnFn("Not editing; type 'edit' first.")
		return nil
	}
	pic, err := loadPicture(path)
	if err != nil {
		printError(err)
		return err
	}
	a.draft.Picture = pic
	printlnFn("New picture:", pic.Filename)
	return nil
}

// EditSave submits the draft. On failure the draft stays so the user can fix
// it and save again, or cancel.
func (a *App) EditSave(ctx context.Context) error {
	if !a.isEditing() {
		printlnFn("Not editing; type 'edit' first.")
		return nil
	}

	u, err := a.session.UpdateProfile(ctx, a.draft)
	if errors.Is(err, services.ErrUnauthenticated) {
		if err := a.loginFirst(ctx); err != nil {
			return err
		}
		u, err = a.session.UpdateProfile(ctx, a.draft)
	}
	if err != nil {
		printlnFn("Profile not saved:")
		printError(err)
		return err
	}

	a.draft = nil
	printlnFn("Profile saved.")
	printProfile(u)
	return nil
}

func (a *App) EditCancel() {
	if !a.isEditing() {
		return
	}
	a.draft = nil
	printlnFn("Changes discarded.")
}

func printProfile(u models.UserRecord) {
	p := u.Profile()

	printlnFn(fmt.Sprintf("%s (@%s)", u.DisplayName(), u.Username))
	printlnFn("Email:  ", u.Email)
	if p.ProfilePictureURL != "" {
		printlnFn("Picture:", p.ProfilePictureURL)
	} else {
		printlnFn("Picture:", "["+u.Initial()+"]")
	}
	if p.Bio != "" {
		printlnFn("Bio:    ", p.Bio)
	}
	if p.Website != "" {
		printlnFn("Website:", p.Website)
	}
	if p.TwitterHandle != "" {
		printlnFn("Twitter:", "@"+p.TwitterHandle)
	}
}

func printDraft(d *models.ProfileEditDraft) {
	printlnFn("first_name:    ", d.FirstName)
	printlnFn("last_name:     ", d.LastName)
	printlnFn("bio:           ", d.Bio)
	printlnFn("website:       ", d.Website)
	printlnFn("twitter_handle:", d.TwitterHandle)
}
