package users

// Fixed per-gender avatar catalogs. Assignment picks uniformly at random.
var (
	maleAvatars = []string{
		"avatars/male/mechanic_01.png",
		"avatars/male/mechanic_02.png",
		"avatars/male/mechanic_03.png",
		"avatars/male/mechanic_04.png",
		"avatars/male/mechanic_05.png",
		"avatars/male/mechanic_06.png",
		"avatars/male/mechanic_07.png",
		"avatars/male/mechanic_08.png",
		"avatars/male/mechanic_09.png",
		"avatars/male/mechanic_10.png",
		"avatars/male/mechanic_11.png",
		"avatars/male/mechanic_12.png",
		"avatars/male/mechanic_13.png",
		"avatars/male/mechanic_14.png",
		"avatars/male/mechanic_15.png",
	}
	femaleAvatars = []string{
		"avatars/female/mechanic_01.png",
		"avatars/female/mechanic_02.png",
		"avatars/female/mechanic_03.png",
		"avatars/female/mechanic_04.png",
		"avatars/female/mechanic_05.png",
		"avatars/female/mechanic_06.png",
		"avatars/female/mechanic_07.png",
		"avatars/female/mechanic_08.png",
		"avatars/female/mechanic_09.png",
		"avatars/female/mechanic_10.png",
		"avatars/female/mechanic_11.png",
		"avatars/female/mechanic_12.png",
		"avatars/female/mechanic_13.png",
		"avatars/female/mechanic_14.png",
		"avatars/female/mechanic_15.png",
	}
)

func avatarCatalog(gender string) []string {
	if gender == "female" {
		return femaleAvatars
	}
	return maleAvatars
}
