package cli

import (
	"context"
	"strconv"

	"github.com/d-madiou/to-meet-yours/internal/client/authstate"
	"github.com/d-madiou/to-meet-yours/internal/client/models"
)

// Profile shows the dating profile and feeds it to the auth state, which may
// move the user out of profile completion.
func (a *App) Profile(ctx context.Context) error {
	p, err := a.profiles.GetMyProfile(ctx)
	if err != nil {
		a.printError(err)
		return err
	}

	a.printProfile(p)
	a.ctrl.SetUserProfile(p)
	return nil
}

// EditProfile prompts for each editable field; an empty answer keeps the
// current value.
func (a *App) EditProfile(ctx context.Context) error {
	current, err := a.profiles.GetMyProfile(ctx)
	if err != nil {
		a.printError(err)
		return err
	}

	var upd models.ProfileUpdate
	fields := []struct {
		prompt  string
		current string
		dst     **string
	}{
		{"Bio", current.Bio, &upd.Bio},
		{"Birth date (YYYY-MM-DD)", deref(current.BirthDate), &upd.BirthDate},
		{"Gender", current.Gender, &upd.Gender},
		{"City", current.City, &upd.City},
		{"Country", current.Country, &upd.Country},
		{"Relationship goal", current.RelationshipGoal, &upd.RelationshipGoal},
		{"Looking for", current.LookingForGender, &upd.LookingForGender},
	}
	for _, f := range fields {
		v, err := GetOptionalText(a.reader, f.prompt, f.current, a.out)
		if err != nil {
			return err
		}
		*f.dst = v
	}

	maxDistance, err := GetOptionalText(a.reader, "Max distance (km)", strconv.Itoa(current.MaxDistanceKm), a.out)
	if err != nil {
		return err
	}
	if maxDistance != nil {
		n, err := strconv.Atoi(*maxDistance)
		if err != nil {
			a.println("Max distance must be a number")
			return err
		}
		upd.MaxDistanceKm = &n
	}

	p, err := a.profiles.UpdateProfile(ctx, upd)
	if err != nil {
		a.printError(err)
		return err
	}

	a.println("Profile updated")
	a.printProfile(p)
	a.ctrl.SetUserProfile(p)
	return nil
}

func (a *App) printProfile(p *models.Profile) {
	a.printf("Bio: %s\n", p.Bio)
	a.printf("Location: %s, %s\n", p.City, p.Country)
	a.printf("Gender: %s, looking for: %s\n", p.Gender, p.LookingForGender)
	a.printf("Goal: %s\n", p.RelationshipGoal)

	state := "incomplete"
	if authstate.IsProfileComplete(p.CompletionPercentage) {
		state = "complete"
	}
	a.printf("Completion: %d%% (%s)\n", p.CompletionPercentage, state)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
