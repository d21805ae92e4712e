// internal/pipeline/ontology-lookup/tables.go
package ontologylookup

// codeEntry keeps the ICD-10 table in a fixed order so that Normalize
// resolves overlapping terms deterministically.
type codeEntry struct {
	term        string
	code        string
	description string
}

var icd10Codes = []codeEntry{
	// neurological
	{"headache", "R51", "Headache"},
	{"migraine", "G43.9", "Migraine, unspecified"},
	{"dizziness", "R42", "Dizziness and giddiness"},
	{"vertigo", "R42", "Dizziness and giddiness"},
	{"confusion", "R41.0", "Disorientation, unspecified"},
	{"memory_loss", "R41.3", "Other amnesia"},
	{"seizure", "R56.9", "Unspecified convulsions"},
	{"fainting", "R55", "Syncope and collapse"},

	// respiratory
	{"cough", "R05", "Cough"},
	{"shortness_of_breath", "R06.0", "Dyspnea"},
	{"difficulty_breathing", "R06.0", "Dyspnea"},
	{"wheezing", "R06.2", "Wheezing"},
	{"chest_congestion", "R09.89", "Other specified symptoms involving respiratory system"},
	{"sore_throat", "J02.9", "Acute pharyngitis, unspecified"},
	{"runny_nose", "J00", "Acute nasopharyngitis"},

	// cardiovascular
	{"chest_pain", "R07.9", "Chest pain, unspecified"},
	{"palpitations", "R00.2", "Palpitations"},
	{"rapid_heartbeat", "R00.0", "Tachycardia, unspecified"},
	{"slow_heartbeat", "R00.1", "Bradycardia, unspecified"},
	{"swelling_legs", "R60.0", "Localized edema"},
	{"high_blood_pressure", "R03.0", "Elevated blood pressure"},

	// gastrointestinal
	{"abdominal_pain", "R10.9", "Unspecified abdominal pain"},
	{"stomach_ache", "R10.9", "Unspecified abdominal pain"},
	{"nausea", "R11.0", "Nausea"},
	{"vomiting", "R11.1", "Vomiting"},
	{"diarrhea", "R19.7", "Diarrhea, unspecified"},
	{"constipation", "K59.0", "Constipation"},
	{"bloating", "R14.0", "Abdominal distension"},
	{"heartburn", "R12", "Heartburn"},
	{"loss_of_appetite", "R63.0", "Anorexia"},
	{"blood_in_stool", "K92.1", "Melena"},

	// musculoskeletal
	{"back_pain", "M54.9", "Dorsalgia, unspecified"},
	{"joint_pain", "M25.50", "Pain in unspecified joint"},
	{"muscle_pain", "M79.1", "Myalgia"},
	{"neck_pain", "M54.2", "Cervicalgia"},
	{"weakness", "R53.1", "Weakness"},
	{"fatigue", "R53.83", "Other fatigue"},

	// dermatological
	{"rash", "R21", "Rash and other nonspecific skin eruption"},
	{"itching", "L29.9", "Pruritus, unspecified"},
	{"skin_swelling", "R22.9", "Localized swelling, unspecified"},
	{"bruising", "R23.3", "Spontaneous ecchymoses"},

	// systemic
	{"fever", "R50.9", "Fever, unspecified"},
	{"chills", "R68.83", "Chills"},
	{"night_sweats", "R61", "Generalized hyperhidrosis"},
	{"weight_loss", "R63.4", "Abnormal weight loss"},
	{"weight_gain", "R63.5", "Abnormal weight gain"},
	{"malaise", "R53.81", "Other malaise"},

	// urological
	{"painful_urination", "R30.0", "Dysuria"},
	{"frequent_urination", "R35.0", "Frequency of micturition"},
	{"blood_in_urine", "R31.9", "Hematuria, unspecified"},

	// ophthalmological
	{"eye_pain", "H57.1", "Ocular pain"},
	{"blurred_vision", "H53.8", "Other visual disturbances"},
	{"eye_redness", "H57.8", "Other specified disorders of eye"},

	// psychiatric
	{"anxiety", "F41.9", "Anxiety disorder, unspecified"},
	{"depression", "F32.9", "Major depressive disorder, single episode"},
	{"insomnia", "G47.0", "Insomnia"},
	{"stress", "F43.9", "Reaction to severe stress, unspecified"},
}

var bodySystems = map[string][]string{
	"neurological":     {"headache", "migraine", "dizziness", "vertigo", "confusion", "memory_loss", "seizure", "fainting"},
	"respiratory":      {"cough", "shortness_of_breath", "difficulty_breathing", "wheezing", "chest_congestion", "sore_throat", "runny_nose"},
	"cardiovascular":   {"chest_pain", "palpitations", "rapid_heartbeat", "slow_heartbeat", "swelling_legs", "high_blood_pressure"},
	"gastrointestinal": {"abdominal_pain", "stomach_ache", "nausea", "vomiting", "diarrhea", "constipation", "bloating", "heartburn", "loss_of_appetite", "blood_in_stool"},
	"musculoskeletal":  {"back_pain", "joint_pain", "muscle_pain", "neck_pain", "weakness", "fatigue"},
	"dermatological":   {"rash", "itching", "skin_swelling", "bruising"},
	"systemic":         {"fever", "chills", "night_sweats", "weight_loss", "weight_gain", "malaise"},
	"urological":       {"painful_urination", "frequent_urination", "blood_in_urine"},
	"ophthalmological": {"eye_pain", "blurred_vision", "eye_redness"},
	"psychiatric":      {"anxiety", "depression", "insomnia", "stress"},
}

var redFlagSymptoms = []string{
	"chest_pain",
	"difficulty_breathing",
	"shortness_of_breath",
	"seizure",
	"fainting",
	"blood_in_stool",
	"blood_in_urine",
	"confusion",
	"severe_headache",
	"high_fever",
	"rapid_heartbeat",
	"unresponsive",
}

// severityIndicators is checked mild first; the first matching tier wins.
var severityIndicators = []struct {
	severity   string
	indicators []string
}{
	{"mild", []string{"slight", "minor", "little", "somewhat", "occasional", "mild", "light"}},
	{"moderate", []string{"moderate", "noticeable", "persistent", "recurring", "regular"}},
	{"severe", []string{"severe", "intense", "extreme", "unbearable", "excruciating", "worst", "terrible", "awful"}},
	{"critical", []string{"sudden onset", "cannot breathe", "crushing", "radiating", "losing consciousness", "unresponsive"}},
}

var symptomSynonyms = []struct {
	term     string
	synonyms []string
}{
	{"headache", []string{"head hurts", "head pain", "head ache", "throbbing head", "splitting headache"}},
	{"stomach_ache", []string{"stomach hurts", "tummy ache", "belly pain", "abdominal discomfort", "stomach cramps"}},
	{"fever", []string{"temperature", "feeling hot", "burning up", "feverish", "high temperature"}},
	{"cough", []string{"coughing", "dry cough", "wet cough", "hacking cough", "persistent cough"}},
	{"shortness_of_breath", []string{"breathless", "can't breathe", "hard to breathe", "gasping", "out of breath", "breathing difficulty"}},
	{"chest_pain", []string{"chest hurts", "chest discomfort", "chest pressure", "chest tightness", "pain in chest"}},
	{"nausea", []string{"feeling sick", "queasy", "want to vomit", "upset stomach", "nauseated"}},
	{"vomiting", []string{"throwing up", "being sick", "puking", "regurgitating"}},
	{"diarrhea", []string{"loose stools", "watery stools", "running stomach", "loose motions"}},
	{"fatigue", []string{"tired", "exhausted", "no energy", "worn out", "drained", "lethargic"}},
	{"dizziness", []string{"dizzy", "light-headed", "unsteady", "room spinning", "woozy"}},
	{"back_pain", []string{"back hurts", "backache", "lower back pain", "upper back pain", "spine pain"}},
	{"sore_throat", []string{"throat pain", "throat hurts", "scratchy throat", "burning throat"}},
}
