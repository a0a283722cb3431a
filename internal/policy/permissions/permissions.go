package permissions

import api "github.com/OvyFlash/telegram-bot-api"

// ChatAdminEntry returns the user's entry in a freshly fetched
// administrator list, or nil when the user is not listed.
func ChatAdminEntry(admins []api.ChatMember, userID int64) *api.ChatMember {
	for i := range admins {
		if admins[i].User != nil && admins[i].User.ID == userID {
			return &admins[i]
		}
	}
	return nil
}

// IsChatAdmin reports whether the user appears in a freshly fetched
// administrator list.
func IsChatAdmin(admins []api.ChatMember, userID int64) bool {
	return ChatAdminEntry(admins, userID) != nil
}

func IsManager(member *api.ChatMember) bool {
	if member == nil {
		return false
	}
	if member.IsCreator() {
		return true
	}
	return member.IsAdministrator() && (member.CanManageChat || member.CanPromoteMembers)
}

func IsPrivilegedModerator(member *api.ChatMember) bool {
	if member == nil {
		return false
	}
	if IsManager(member) {
		return true
	}
	return member.IsAdministrator() && member.CanRestrictMembers
}
