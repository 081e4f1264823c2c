package specialty

// Names used directly by recruitment and discussion ordering.
const (
	PrimaryCare        = "Primary Care Physician"
	InternalMedicine   = "Internal Medicine"
	EmergencyMedicine  = "Emergency Medicine"
	Pathologist        = "Pathologist"
	Radiologist        = "Radiologist"
	Hematologist       = "Hematologist"
	Oncologist         = "Oncologist"
	ClinicalPharmacist = "Clinical Pharmacist"
)

var defaultSpecialties = []Specialty{
	{
		Name:      PrimaryCare,
		Expertise: "general medicine, preventive care, common conditions, initial diagnosis",
		Keywords:  []string{"general", "routine", "checkup", "common", "prevention"},
	},
	{
		Name:      InternalMedicine,
		Expertise: "adult diseases, complex diagnoses, chronic disease management",
		Keywords:  []string{"adult", "chronic", "complex", "systemic"},
	},
	{
		Name:      "Cardiologist",
		Expertise: "heart conditions, cardiovascular disease, hypertension, arrhythmias",
		Keywords:  []string{"heart", "cardiac", "chest pain", "hypertension", "ECG", "blood pressure"},
	},
	{
		Name:      "Pulmonologist",
		Expertise: "lung diseases, respiratory conditions, breathing problems",
		Keywords:  []string{"lung", "breathing", "respiratory", "cough", "dyspnea", "asthma"},
	},
	{
		Name:      "Gastroenterologist",
		Expertise: "digestive system, GI disorders, liver diseases",
		Keywords:  []string{"stomach", "abdomen", "digestive", "liver", "bowel", "nausea"},
	},
	{
		Name:      "Nephrologist",
		Expertise: "kidney diseases, renal function, dialysis, electrolyte disorders",
		Keywords:  []string{"kidney", "renal", "creatinine", "dialysis", "urine"},
	},
	{
		Name:      "Neurologist",
		Expertise: "brain and nervous system disorders, headaches, seizures, stroke",
		Keywords:  []string{"brain", "headache", "seizure", "nervous", "stroke", "neurological"},
	},
	{
		Name:      "Endocrinologist",
		Expertise: "hormonal disorders, diabetes, thyroid diseases, metabolic conditions",
		Keywords:  []string{"diabetes", "thyroid", "hormone", "endocrine", "metabolic"},
	},
	{
		Name:      "General Surgeon",
		Expertise: "surgical procedures, trauma, acute abdomen",
		Keywords:  []string{"surgery", "surgical", "trauma", "acute", "operation"},
	},
	{
		Name:      "Orthopedic Surgeon",
		Expertise: "bone and joint disorders, fractures, musculoskeletal conditions",
		Keywords:  []string{"bone", "joint", "fracture", "orthopedic", "musculoskeletal"},
	},
	{
		Name:      "Psychiatrist",
		Expertise: "mental health, psychiatric disorders, behavioral issues",
		Keywords:  []string{"mental", "psychiatric", "depression", "anxiety", "behavioral"},
	},
	{
		Name:      "Dermatologist",
		Expertise: "skin conditions, rashes, skin cancer",
		Keywords:  []string{"skin", "rash", "dermatology", "lesion", "mole"},
	},
	{
		Name:      Hematologist,
		Expertise: "blood disorders, anemia, clotting disorders, blood cancers",
		Keywords:  []string{"blood", "anemia", "bleeding", "clotting", "hematology"},
	},
	{
		Name:      "Infectious Disease",
		Expertise: "infections, tropical diseases, immunocompromised conditions",
		Keywords:  []string{"infection", "fever", "tropical", "antibiotic", "virus"},
	},
	{
		Name:      "Rheumatologist",
		Expertise: "autoimmune diseases, arthritis, joint inflammation",
		Keywords:  []string{"arthritis", "autoimmune", "joint pain", "inflammation", "rheumatic"},
	},
	{
		Name:      Oncologist,
		Expertise: "cancer diagnosis and treatment, chemotherapy, tumor management",
		Keywords:  []string{"cancer", "tumor", "oncology", "chemotherapy", "malignancy"},
	},
	{
		Name:      EmergencyMedicine,
		Expertise: "acute care, trauma, emergency conditions, triage",
		Keywords:  []string{"emergency", "acute", "trauma", "urgent", "critical"},
	},
	{
		Name:      "Pediatrician",
		Expertise: "children's health, developmental issues, pediatric diseases",
		Keywords:  []string{"child", "pediatric", "infant", "developmental", "growth"},
	},
	{
		Name:      Radiologist,
		Expertise: "medical imaging interpretation, X-rays, CT, MRI, ultrasound",
		Keywords:  []string{"imaging", "X-ray", "CT", "MRI", "radiology", "scan"},
	},
	{
		Name:      Pathologist,
		Expertise: "disease diagnosis through lab tests, tissue examination, biopsies",
		Keywords:  []string{"biopsy", "lab", "pathology", "tissue", "microscopic"},
	},
}

// criticalTerms boosts associated specialties when the trigger appears.
// Some associated names are not in the default catalog; they only score
// when a custom catalog defines them.
var criticalTerms = []struct {
	term        string
	specialties []string
}{
	{"emergency", []string{EmergencyMedicine, "Trauma Surgeon"}},
	{"child", []string{"Pediatrician", "Pediatric Specialist"}},
	{"cancer", []string{Oncologist, Hematologist, Radiologist}},
	{"heart", []string{"Cardiologist", "Cardiac Surgeon"}},
	{"brain", []string{"Neurologist", "Neurosurgeon"}},
	{"infection", []string{"Infectious Disease", InternalMedicine}},
}
