package profile

import "encoding/json"

// migration upgrades a preferences JSON payload from one schema version to
// the next. Each entry is keyed by the version it upgrades FROM.
var migrations = map[int]func(map[string]any){
	1: migrateV1ToV2,
}

// migrateV1ToV2 introduces pair allow/deny lists, defaulting both to empty.
func migrateV1ToV2(raw map[string]any) {
	if _, ok := raw["pair_allow_list"]; !ok {
		raw["pair_allow_list"] = []string{}
	}
	if _, ok := raw["pair_deny_list"]; !ok {
		raw["pair_deny_list"] = []string{}
	}
	raw["schema_version"] = 2
}

// DecodePreferences unmarshals raw preferences JSON, applying every
// migration needed to reach CurrentPreferencesSchemaVersion. A missing or
// zero schema_version is treated as version 1.
func DecodePreferences(raw []byte) (Preferences, error) {
	if len(raw) == 0 {
		return DefaultPreferences(), nil
	}

	var generic map[string]any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return Preferences{}, err
	}

	version := 1
	if v, ok := generic["schema_version"].(float64); ok && v > 0 {
		version = int(v)
	}

	for version < CurrentPreferencesSchemaVersion {
		migrate, ok := migrations[version]
		if !ok {
			break // no migration registered past this point; stop at the known-good version
		}
		migrate(generic)
		version++
	}

	migrated, err := json.Marshal(generic)
	if err != nil {
		return Preferences{}, err
	}

	var prefs Preferences
	if err := json.Unmarshal(migrated, &prefs); err != nil {
		return Preferences{}, err
	}
	return prefs, nil
}

func EncodePreferences(p Preferences) ([]byte, error) {
	return json.Marshal(p)
}
