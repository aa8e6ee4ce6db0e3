package scenario

// Asset vocabularies the client ships files for. The prompt restricts the model to these
// names so every generated scene resolves to real files.
var BackgroundAssets = []string{
	"forest_path", "dark_forest", "village_square", "tavern_interior", "castle_hall",
	"throne_room", "dungeon_cell", "cave_entrance", "crystal_cavern", "mountain_pass",
	"desert_ruins", "ancient_temple", "wizard_tower", "sea_cliffs", "harbor_docks",
	"battlefield", "graveyard", "royal_gardens",
}

var AudioAssets = []string{
	"forest_sounds", "tavern_chatter", "dungeon_drips", "wind_howl", "ocean_waves",
	"battle_drums", "mystical_choir", "rain_ambient", "thunder_storm", "crackling_fire",
	"peaceful_melody", "tense_strings", "epic_theme", "dark_ambience",
}

func BackgroundPath(name string) string { return "/assets/backgrounds/" + name + ".jpg" }
func AudioPath(name string) string      { return "/assets/sounds/" + name + ".mp3" }

func IsKnownBackground(name string) bool { return oneOf(name, BackgroundAssets) }
func IsKnownAudio(name string) bool      { return oneOf(name, AudioAssets) }
