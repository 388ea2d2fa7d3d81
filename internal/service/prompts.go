package service

import (
	"fmt"
	"strings"

	"github.com/liliang-cn/triage/internal/catalog"
	"github.com/liliang-cn/triage/internal/domain"
)

const notProvided = "Not provided"

func buildExtractionPrompt(cat *catalog.Catalog, answers map[int]string, lang domain.Language) string {
	var qa strings.Builder
	for n := 1; n <= cat.Total(); n++ {
		question, _ := cat.Text(n, lang)
		answer, ok := answers[n]
		if !ok || strings.TrimSpace(answer) == "" {
			answer = notProvided
		}
		if n > 1 {
			qa.WriteString("\n\n")
		}
		fmt.Fprintf(&qa, "Q%d: %s\nA: %s", n, question, answer)
	}

	return fmt.Sprintf(`You are a medical data extraction assistant. Your task is to analyze patient responses from a triage intake interview and extract structured medical information.

NOTE: The patient's responses are in %[1]s. Extract information regardless of the input language, but write field values in medical English terminology where appropriate.

## Patient Responses:

%[2]s

## Instructions:

Extract and structure the information into a medical anamnesis.

### Patient Demographics:
1. patient_name: the patient's full name exactly as provided
2. date_of_birth: date of birth in the format provided
3. phone_number: phone number if provided
4. emergency_contact_name: emergency contact person's name
5. emergency_contact_phone: emergency contact phone number

### Medical Information:
6. chief_complaint: main reason for the visit in medical terminology (e.g. "chest pain" instead of "my chest hurts")
7. onset: when symptoms started (e.g. "2 hours ago", "yesterday morning")
8. pain_scale: integer from 1 to 10. If not numeric, estimate from descriptors (severe=8-10, moderate=5-7, mild=1-4)
9. location: body location using anatomical terms where appropriate
10. radiation: where pain spreads to, if mentioned
11. associated_symptoms: other symptoms in medical terminology ("sweating" -> "diaphoresis", "hard to breathe" -> "dyspnea")
12. medical_history: past medical conditions
13. current_medications: medications
14. allergies: allergies, especially drug allergies

## Response Format:

Respond with ONLY a valid JSON object matching this structure:
{
    "patient_name": "string",
    "date_of_birth": "string",
    "phone_number": "string or null",
    "emergency_contact_name": "string or null",
    "emergency_contact_phone": "string or null",
    "chief_complaint": "string",
    "onset": "string",
    "duration": "string or null",
    "pain_scale": integer 1-10 or null,
    "pain_type": "string or null",
    "location": "string or null",
    "radiation": "string or null",
    "associated_symptoms": ["list", "of", "symptoms"],
    "medical_history": ["list", "of", "conditions"],
    "current_medications": ["list", "of", "medications"],
    "allergies": ["list", "of", "allergies"]
}

If information is not provided or unclear, use null for optional fields or empty arrays for lists.
`, lang.Name(), qa.String())
}

func buildClassificationPrompt(r *domain.PatientRecord, protocols []string) string {
	painScale := "Not specified"
	if r.PainScale != nil {
		painScale = fmt.Sprintf("%d", *r.PainScale)
	}

	return fmt.Sprintf(`You are an emergency department triage specialist. Your task is to classify a patient using the Manchester Triage Protocol.

## Patient Anamnesis:

- Chief Complaint: %s
- Onset: %s
- Pain Scale: %s/10
- Location: %s
- Radiation: %s
- Associated Symptoms: %s
- Medical History: %s
- Current Medications: %s
- Allergies: %s

## Relevant Triage Protocols:

%s

## Manchester Triage Classification Criteria:

| Color | Criteria | Max Wait Time |
|-------|----------|---------------|
| RED | Life-threatening: airway compromise, severe breathing difficulty, major hemorrhage, shock, unconsciousness, severe chest pain with cardiac features | Immediate |
| YELLOW | Serious but stable: moderate pain (7-8/10), localized infection with fever, possible fractures, moderate breathing issues | 30-60 minutes |
| GREEN | Non-urgent: minor injuries, mild symptoms, stable vital signs, low-grade fever | 1-4 hours |
| BLUE | Minor issues: small cuts, minor cold symptoms, chronic stable conditions | 4+ hours |

## Instructions:

1. Analyze the patient's symptoms against the triage protocols
2. Consider red flags: chest pain with radiation or diaphoresis, severe pain, breathing difficulty, altered consciousness
3. Account for risk factors from medical history
4. Assign the appropriate classification

## Response Format:

Respond with ONLY a valid JSON object:
{
    "color": "RED" | "YELLOW" | "GREEN" | "BLUE",
    "reasoning": "Brief explanation of why this classification was assigned",
    "risk_factors": ["list", "of", "identified", "risks"],
    "matched_protocols": ["protocols", "that", "matched"]
}
`,
		r.ChiefComplaint,
		r.Onset,
		painScale,
		orDefault(r.Location, "Not specified"),
		orDefault(r.Radiation, "None"),
		joinOr(r.AssociatedSymptoms, "None"),
		joinOr(r.MedicalHistory, "None reported"),
		joinOr(r.CurrentMedications, "None"),
		joinOr(r.Allergies, "NKDA"),
		bulletList(protocols),
	)
}

func buildRoutingPrompt(r *domain.PatientRecord, c *domain.Classification, rules, orders []string, lang domain.Language) string {
	language := lang.Name()

	var allergyWarning string
	if len(r.Allergies) > 0 {
		allergyWarning = fmt.Sprintf(`
## PATIENT ALLERGIES - CHECK FOR CONTRAINDICATIONS:
%s

You MUST check whether any preliminary order conflicts with these allergies.
`, strings.Join(r.Allergies, ", "))
	}

	var departments strings.Builder
	for _, d := range domain.Departments {
		fmt.Fprintf(&departments, "- %s - %s\n", d.Name, d.Scope)
	}

	urgencies := make([]string, 0, len(domain.Urgencies()))
	for _, u := range domain.Urgencies() {
		urgencies = append(urgencies, fmt.Sprintf("%q", string(u)))
	}

	return fmt.Sprintf(`You are a hospital routing specialist. Your task is to direct a triaged patient to the appropriate department and generate preliminary orders.

## Language Context
The patient's data is in %[1]s. Understand the symptoms in their original language, match them against the English routing rules and orders provided, and write preliminary_orders, contraindications and notes_for_staff in %[1]s.

## Patient Information:

- Chief Complaint: %[2]s
- Location: %[3]s
- Associated Symptoms: %[4]s
- Medical History: %[5]s
- Current Medications: %[6]s
- Allergies: %[7]s

## Triage Classification:

- Color: %[8]s
- Priority: %[9]s
- Reasoning: %[10]s
%[11]s
## Available Routing Rules:

%[12]s

## Available Preliminary Orders:

%[13]s

## Department Options:

%[14]s
## Instructions:

1. Match symptoms to the appropriate department
2. Select relevant preliminary orders for the condition
3. CHECK ALL ORDERS AGAINST PATIENT ALLERGIES
4. Write a brief summary note for receiving staff

## Response Format:

Respond with ONLY a valid JSON object:
{
    "department": "Department name",
    "doctor_type": "Specialist type (e.g. Cardiologist, Orthopedic Surgeon)",
    "urgency": %[15]s,
    "room_type": "Emergency bay" | "Consultation room" | "Trauma bay" | null,
    "preliminary_orders": ["list of orders in %[1]s"],
    "contraindications": ["list of things to avoid in %[1]s"],
    "notes_for_staff": "Brief summary for receiving staff in %[1]s"
}
`,
		language,
		r.ChiefComplaint,
		orDefault(r.Location, "Not specified"),
		joinOr(r.AssociatedSymptoms, "None"),
		joinOr(r.MedicalHistory, "None reported"),
		joinOr(r.CurrentMedications, "None"),
		joinOr(r.Allergies, "NKDA (No Known Drug Allergies)"),
		c.Color,
		c.Priority,
		c.Reasoning,
		allergyWarning,
		bulletList(rules),
		bulletList(orders),
		departments.String(),
		strings.Join(urgencies, " | "),
	)
}

func bulletList(items []string) string {
	if len(items) == 0 {
		return "(no reference entries)"
	}
	var b strings.Builder
	for i, item := range items {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("- ")
		b.WriteString(item)
	}
	return b.String()
}

func joinOr(items []string, fallback string) string {
	if len(items) == 0 {
		return fallback
	}
	return strings.Join(items, ", ")
}

func orDefault(s *string, fallback string) string {
	if s == nil || *s == "" {
		return fallback
	}
	return *s
}
