package ui

import (
	"fmt"

	"github.com/charmbracelet/huh"

	"github.com/redmonkez12/go-phone-auth/internal/user"
)

// ConfirmRoleChange asks the operator before a role change is applied
func ConfirmRoleChange(email string, role user.Role) (bool, error) {
	confirmed := false

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Set role of %s to %q?", email, role)).
				Description("All of the user's sessions will be signed out.").
				Affirmative("Yes").
				Negative("No").
				Value(&confirmed),
		),
	).WithTheme(huh.ThemeCatppuccin())

	if err := form.Run(); err != nil {
		return false, err
	}
	return confirmed, nil
}

func PrintTitle(msg string) {
	fmt.Println(titleStyle.Render(msg))
}

func PrintRoleChanged(u *user.User) {
	fmt.Println(successStyle.Render("✓ Role updated"))
	fmt.Println(subtleStyle.Render(fmt.Sprintf("  %s (%s) is now %s", u.Email, u.ID, u.Role)))
}

func PrintSuccess(msg string) {
	fmt.Println(successStyle.Render("✓ " + msg))
}

func PrintError(msg string) {
	fmt.Println(errorStyle.Render("✗ " + msg))
}
